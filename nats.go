package delay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type (
	// NATSListener publishes event lifecycle notifications to NATS subjects
	// under a common prefix
	NATSListener struct {
		conn   *nats.Conn
		log    *zap.Logger
		prefix string
	}

	// Notification is the JSON payload published for each lifecycle change
	Notification struct {
		ID       string `json:"id"`
		Command  string `json:"command"`
		Source   string `json:"source"`
		Error    string `json:"error,omitempty"`
		Tick     Tick   `json:"tick"`
		Priority int    `json:"priority"`
		Silent   bool   `json:"silent"`
	}
)

// Notification subjects, relative to the listener's prefix
const (
	SubjectScheduled = "scheduled"
	SubjectCancelled = "cancelled"
	SubjectFired     = "fired"
	SubjectFailed    = "failed"
)

var _ Listener = (*NATSListener)(nil)

// NewNATSListener connects to NATS with automatic reconnection. Extra
// nats.Option values can be appended
func NewNATSListener(
	url, prefix string, log *zap.Logger, opts ...nats.Option,
) (*NATSListener, error) {
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	if prefix == "" {
		prefix = DefaultNotifySubject
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NATSListener{conn: nc, log: log, prefix: prefix}, nil
}

func (l *NATSListener) EventScheduled(ev Event) {
	l.publish(SubjectScheduled, ev, nil)
}

func (l *NATSListener) EventCancelled(ev Event) {
	l.publish(SubjectCancelled, ev, nil)
}

func (l *NATSListener) EventFired(ev Event, err error) {
	if err != nil {
		l.publish(SubjectFailed, ev, err)
		return
	}
	l.publish(SubjectFired, ev, nil)
}

// Subject returns the full NATS subject for a notification kind
func (l *NATSListener) Subject(kind string) string {
	return l.prefix + "." + kind
}

// Close flushes pending notifications and closes the connection
func (l *NATSListener) Close() error {
	if err := l.conn.Flush(); err != nil {
		l.conn.Close()
		return err
	}
	l.conn.Close()
	return nil
}

func (l *NATSListener) publish(kind string, ev Event, evErr error) {
	n := Notification{
		ID:       ev.ID,
		Tick:     ev.Tick,
		Command:  ev.Command,
		Priority: ev.Priority,
		Silent:   ev.Silent,
		Source:   ev.Source.String(),
	}
	if evErr != nil {
		n.Error = evErr.Error()
	}

	data, err := json.Marshal(n)
	if err == nil {
		err = l.conn.Publish(l.Subject(kind), data)
	}
	if err != nil {
		l.log.Warn("Failed to publish notification",
			zap.String("subject", l.Subject(kind)),
			zap.String("id", ev.ID),
			zap.Error(err),
		)
	}
}
