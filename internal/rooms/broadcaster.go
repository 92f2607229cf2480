package rooms

import (
	"log/slog"

	"github.com/jortega/partidasync/internal/model"
)

// Sender delivers one named event to a single connection
type Sender interface {
	Send(event string, payload any) error
}

// Transport resolves a live connection id to its sender.
// Returns nil for a connection that has gone away.
type Transport interface {
	SenderFor(id model.ConnectionID) Sender
}

// Broadcaster fans events out to the current members of a room. Sends race
// benignly with disconnects: a send to a connection that died in flight is
// logged and swallowed.
type Broadcaster struct {
	directory *Directory
	transport Transport
	logger    *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(directory *Directory, transport Transport, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		directory: directory,
		transport: transport,
		logger:    logger.With(slog.String("component", "broadcaster")),
	}
}

// Broadcast sends an event to every current member of a room. Pass a
// non-empty exclude to skip echoing to the sender; pass the zero value to
// deliberately include it.
func (b *Broadcaster) Broadcast(room, event string, payload any, exclude model.ConnectionID) {
	// Snapshot so joins/leaves during delivery cannot corrupt iteration
	members := b.directory.Members(room)

	sent := 0
	for _, id := range members {
		if exclude != "" && id == exclude {
			continue
		}
		if err := b.SendTo(id, event, payload); err != nil {
			b.logger.Debug("broadcast send failed",
				slog.String("room", room),
				slog.String("event", event),
				slog.String("connection", string(id)),
				slog.Any("error", err))
			continue
		}
		sent++
	}

	b.logger.Debug("broadcast",
		slog.String("room", room),
		slog.String("event", event),
		slog.Int("recipients", sent))
}

// SendTo sends an event to a single connection
func (b *Broadcaster) SendTo(id model.ConnectionID, event string, payload any) error {
	sender := b.transport.SenderFor(id)
	if sender == nil {
		return ErrConnectionGone
	}
	return sender.Send(event, payload)
}
