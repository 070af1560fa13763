package commands

import (
	"fmt"
	"strings"

	"github.com/hybridmesh/mesh-go/pkg/log"
	"github.com/hybridmesh/mesh-go/pkg/transport"
)

var (
	layerNames = map[string]log.Layer{
		"link":    log.LayerLink,
		"driver":  log.LayerDriver,
		"service": log.LayerService,
	}
	directionNames = map[string]log.Direction{
		"in":  log.DirectionIn,
		"out": log.DirectionOut,
	}
)

func lookup[T any](names map[string]T, s, choices string) (T, error) {
	v, ok := names[strings.ToLower(s)]
	if !ok {
		return v, fmt.Errorf("%q is not one of %s", s, choices)
	}
	return v, nil
}

// ParseLayerFlag accepts link, driver or service in any case.
func ParseLayerFlag(s string) (log.Layer, error) {
	return lookup(layerNames, s, "link, driver, service")
}

// ParseDirectionFlag accepts in or out in any case.
func ParseDirectionFlag(s string) (log.Direction, error) {
	return lookup(directionNames, s, "in, out")
}

// ParseCategoryFlag accepts a category name in any case.
func ParseCategoryFlag(s string) (log.Category, error) {
	c, ok := log.ParseCategory(strings.ToUpper(s))
	if !ok {
		return 0, fmt.Errorf("%q is not one of message, discovery, state, error", s)
	}
	return c, nil
}

// ParseTransportFlag accepts the transport names understood by
// transport.ParseKind.
func ParseTransportFlag(s string) (transport.Kind, error) {
	return transport.ParseKind(s)
}
