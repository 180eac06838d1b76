package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "rfpgest.jobs"

// NATS publishes events on "<prefix>.<kind>.<status>".
type NATS struct {
	conn   *nats.Conn
	prefix string
}

func NewNATS(url, prefix string) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("rfpgest"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{conn: conn, prefix: prefix}, nil
}

// Subject returns the subject an event is published on.
func Subject(prefix string, ev Event) string {
	token := func(s string) string {
		if s == "" {
			return "unknown"
		}
		return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(s)
	}
	return prefix + "." + token(ev.Kind) + "." + token(ev.Status)
}

func (n *NATS) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.conn.Publish(Subject(n.prefix, ev), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (n *NATS) Close() error {
	return n.conn.Drain()
}
