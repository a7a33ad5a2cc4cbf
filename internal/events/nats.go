package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const natsSubjectPrefix = "order_notify."

type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

type NATSPublisher struct {
	nc natsConn
}

func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

// ConnectNATS dials with a bounded reconnect policy and fails fast when the
// server is unreachable at startup.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("order-notify"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.RetryOnFailedConnect(false),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}

func Subject(t Type) string {
	return natsSubjectPrefix + string(t)
}

func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}
	if err := p.nc.Publish(Subject(ev.Type), body); err != nil {
		return fmt.Errorf("nats publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
