package log

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
)

// SlogAdapter mirrors journal events into an operational slog.Logger at
// debug level, as mesh-node -trace does.
type SlogAdapter struct {
	logger atomic.Pointer[slog.Logger]
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	a := &SlogAdapter{}
	a.SetLogger(logger)
	return a
}

// SetLogger switches the destination logger. It may be called while events
// are being logged.
func (a *SlogAdapter) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a.logger.Store(logger)
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Transport != 0 {
		attrs = append(attrs, slog.String("transport", event.Transport.String()))
	}
	if event.PeerID != "" {
		attrs = append(attrs, slog.String("peer_id", event.PeerID))
	}
	if event.LinkID != "" {
		attrs = append(attrs, slog.String("link_id", event.LinkID))
	}
	if event.Seq != 0 {
		attrs = append(attrs, slog.Uint64("seq", event.Seq))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Discovery != nil:
		attrs = append(attrs,
			slog.String("name", event.Discovery.Name),
			slog.Bool("online", event.Discovery.Online),
			slog.Bool("mesh", event.Discovery.HasMeshService),
		)
		if event.Discovery.SignalStrength != nil {
			attrs = append(attrs, slog.Int("rssi", *event.Discovery.SignalStrength))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Code != "" {
			attrs = append(attrs, slog.String("error_code", event.Error.Code))
		}
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	case event.Data != nil:
		attrs = append(attrs, slog.Int("data_size", event.Data.Size))
	}

	a.logger.Load().LogAttrs(context.Background(), slog.LevelDebug, "journal", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
