package log

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Journal files are read back by tools long after a node wrote them and may
// be truncated or come from another build, so decoding is bounded.
const (
	maxNestedLevels  = 16
	maxArrayElements = 1 << 16
	maxMapPairs      = 1 << 10
)

var (
	journalEnc = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	})
	journalDec = mustDecMode(cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		MaxNestedLevels:   maxNestedLevels,
		MaxArrayElements:  maxArrayElements,
		MaxMapPairs:       maxMapPairs,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	m, err := opts.EncMode()
	if err != nil {
		panic("log: journal cbor encoder: " + err.Error())
	}
	return m
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic("log: journal cbor decoder: " + err.Error())
	}
	return m
}

// EncodeEvent returns the journal encoding of event.
func EncodeEvent(event Event) ([]byte, error) {
	return journalEnc.Marshal(event)
}

// DecodeEvent parses one journal record.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := journalDec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder returns a journal encoder writing consecutive records to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return journalEnc.NewEncoder(w)
}

// NewDecoder returns a journal decoder reading consecutive records from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return journalDec.NewDecoder(r)
}
