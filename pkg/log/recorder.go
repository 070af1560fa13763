package log

import (
	"github.com/hybridmesh/mesh-go/pkg/eventbus"
)

// MaxLogDataSize is the maximum payload size kept in data events (4 KB).
const MaxLogDataSize = 4096

// Recorder journals every event published on a bus.
type Recorder struct {
	sub    *eventbus.Subscription
	logger Logger
}

// NewRecorder subscribes to all event families on bus and writes each event
// to logger. A nil logger records nothing.
func NewRecorder(bus *eventbus.Bus, logger Logger) *Recorder {
	if logger == nil {
		logger = NoopLogger{}
	}
	r := &Recorder{logger: logger}
	r.sub = bus.SubscribeFunc(func(ev eventbus.Event) {
		r.logger.Log(FromBusEvent(ev))
	})
	return r
}

// Close stops recording. Events already queued may still be written.
func (r *Recorder) Close() {
	r.sub.Close()
}

// FromBusEvent converts a bus event to a journal event.
func FromBusEvent(ev eventbus.Event) Event {
	out := Event{
		Timestamp: ev.Timestamp,
		Layer:     LayerService,
		Transport: ev.Transport,
		Seq:       ev.Seq,
	}

	switch {
	case ev.Discovery != nil:
		d := ev.Discovery
		out.Category = CategoryDiscovery
		out.PeerID = d.ID
		out.Discovery = &DiscoveryData{
			Name:           d.Name,
			SignalStrength: d.SignalStrength,
			Online:         d.IsOnline,
			HasMeshService: d.HasMeshService,
			LastSeen:       d.LastSeen,
		}
	case ev.Lifecycle != nil:
		l := ev.Lifecycle
		out.Category = CategoryState
		out.PeerID = l.PeerID
		entity := StateEntityScan
		if l.Entity == eventbus.EntityConnection {
			entity = StateEntityConnection
		}
		out.StateChange = &StateChangeEvent{
			Entity:   entity,
			OldState: l.FromState,
			NewState: l.ToState,
			Reason:   l.Reason,
		}
	case ev.Error != nil:
		e := ev.Error
		out.Category = CategoryError
		out.PeerID = e.PeerID
		out.Error = &ErrorEventData{
			Layer:   LayerService,
			Message: e.Message,
			Code:    string(e.Code),
		}
	case ev.Data != nil:
		d := ev.Data
		out.Category = CategoryMessage
		out.Direction = DirectionIn
		out.PeerID = d.PeerID
		payload, truncated := d.Payload, false
		if len(payload) > MaxLogDataSize {
			payload, truncated = payload[:MaxLogDataSize], true
		}
		out.Data = &DataEventData{
			Size:      len(d.Payload),
			Payload:   payload,
			Truncated: truncated,
		}
	}
	return out
}
