package log

import (
	"fmt"
	"testing"
)

func TestEnumNames(t *testing.T) {
	tests := []struct {
		value fmt.Stringer
		want  string
	}{
		{DirectionIn, "IN"},
		{DirectionOut, "OUT"},
		{Direction(7), "UNKNOWN"},
		{LayerLink, "LINK"},
		{LayerDriver, "DRIVER"},
		{LayerService, "SERVICE"},
		{Layer(7), "UNKNOWN"},
		{CategoryMessage, "MESSAGE"},
		{CategoryDiscovery, "DISCOVERY"},
		{CategoryState, "STATE"},
		{CategoryError, "ERROR"},
		{Category(7), "UNKNOWN"},
		{StateEntityScan, "SCAN"},
		{StateEntityConnection, "CONNECTION"},
		{StateEntityLink, "LINK"},
		{StateEntity(7), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.value.String(); got != tt.want {
			t.Errorf("%T(%v).String() = %q, want %q", tt.value, tt.value, got, tt.want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range []Category{CategoryMessage, CategoryDiscovery, CategoryState, CategoryError} {
		got, ok := ParseCategory(c.String())
		if !ok || got != c {
			t.Errorf("ParseCategory(%q) = %v, %v", c.String(), got, ok)
		}
	}

	// Names are matched exactly as printed; callers normalise case.
	for _, s := range []string{"discovery", "UNKNOWN", ""} {
		if _, ok := ParseCategory(s); ok {
			t.Errorf("ParseCategory(%q) should fail", s)
		}
	}
}
