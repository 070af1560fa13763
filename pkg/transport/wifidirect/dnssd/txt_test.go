package dnssd

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

func TestPeerTXTRoundTrip(t *testing.T) {
	info := PeerInfo{
		ID:         "node-1",
		Name:       "Kitchen Tablet",
		DeviceType: DefaultDeviceType,
		Services:   []uuid.UUID{transport.MeshServiceUUID},
	}

	strs := TXTRecordsToStrings(EncodePeerTXT(info))
	sort.Strings(strs)
	if len(strs) != 4 {
		t.Fatalf("got %d TXT strings, want 4: %v", len(strs), strs)
	}

	got, err := DecodePeerTXT(StringsToTXTRecords(strs))
	if err != nil {
		t.Fatalf("DecodePeerTXT: %v", err)
	}
	if got.ID != info.ID || got.Name != info.Name || got.DeviceType != info.DeviceType {
		t.Errorf("decoded %+v, want %+v", got, info)
	}
	if len(got.Services) != 1 || got.Services[0] != transport.MeshServiceUUID {
		t.Errorf("services = %v", got.Services)
	}
}

func TestDecodePeerTXTMissingID(t *testing.T) {
	_, err := DecodePeerTXT(TXTRecordMap{TXTKeyName: "x"})
	if !errors.Is(err, ErrMissingID) {
		t.Errorf("err = %v, want ErrMissingID", err)
	}
}

func TestDecodePeerTXTSkipsBadServices(t *testing.T) {
	info, err := DecodePeerTXT(TXTRecordMap{
		TXTKeyID:       "n",
		TXTKeyServices: "not-a-uuid, " + transport.MeshServiceUUID.String(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Services) != 1 {
		t.Errorf("services = %v, want only the mesh uuid", info.Services)
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"a=1", "flag", "", "b=x=y"})
	if txt["a"] != "1" || txt["b"] != "x=y" {
		t.Errorf("txt = %v", txt)
	}
	if v, ok := txt["flag"]; !ok || v != "" {
		t.Errorf("flag = %q, %v", v, ok)
	}
	if len(txt) != 3 {
		t.Errorf("len = %d, want 3", len(txt))
	}
}

func TestValidateInstanceName(t *testing.T) {
	if err := ValidateInstanceName("node-1"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateInstanceName(""); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("empty name: %v", err)
	}
	if err := ValidateInstanceName(strings.Repeat("x", MaxInstanceNameLen+1)); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("long name: %v", err)
	}
}
