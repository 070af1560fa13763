package dnssd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TXT record keys.
const (
	TXTKeyID         = "id"
	TXTKeyName       = "dn"
	TXTKeyDeviceType = "dt"
	TXTKeyServices   = "sv"
)

// MaxInstanceNameLen is the DNS label limit.
const MaxInstanceNameLen = 63

var (
	// ErrMissingID is returned when a TXT record carries no node id.
	ErrMissingID = errors.New("missing node id")

	// ErrInstanceNameTooLong is returned for instance names over the DNS label limit.
	ErrInstanceNameTooLong = errors.New("instance name too long")
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// PeerInfo is what a node publishes about itself.
type PeerInfo struct {
	ID         string
	Name       string
	DeviceType string
	Services   []uuid.UUID
}

// EncodePeerTXT creates the TXT records for info.
func EncodePeerTXT(info PeerInfo) TXTRecordMap {
	txt := TXTRecordMap{TXTKeyID: info.ID}
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}
	if info.DeviceType != "" {
		txt[TXTKeyDeviceType] = info.DeviceType
	}
	if len(info.Services) > 0 {
		ids := make([]string, len(info.Services))
		for i, s := range info.Services {
			ids[i] = s.String()
		}
		txt[TXTKeyServices] = strings.Join(ids, ",")
	}
	return txt
}

// DecodePeerTXT parses the TXT records of a peer. Unparseable service ids
// are skipped.
func DecodePeerTXT(txt TXTRecordMap) (PeerInfo, error) {
	id, ok := txt[TXTKeyID]
	if !ok || id == "" {
		return PeerInfo{}, ErrMissingID
	}
	info := PeerInfo{
		ID:         id,
		Name:       txt[TXTKeyName],
		DeviceType: txt[TXTKeyDeviceType],
	}
	if sv := txt[TXTKeyServices]; sv != "" {
		for _, s := range strings.Split(sv, ",") {
			if u, err := uuid.Parse(strings.TrimSpace(s)); err == nil {
				info.Services = append(info.Services, u)
			}
		}
	}
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
