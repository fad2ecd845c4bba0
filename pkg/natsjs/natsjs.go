// Package natsjs wraps a NATS connection with its JetStream context.
package natsjs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	_defaultConnAttempts  = 10
	_defaultConnTimeout   = time.Second
	_defaultReconnectWait = 2 * time.Second
	_defaultDrainTimeout  = 10 * time.Second
)

type NATS struct {
	connAttempts  int
	connTimeout   time.Duration
	reconnectWait time.Duration
	drainTimeout  time.Duration
	name          string

	url string

	Conn *nats.Conn
	JS   jetstream.JetStream
}

func New(ctx context.Context, url string, opts ...Option) (*NATS, error) {
	n := &NATS{
		connAttempts:  _defaultConnAttempts,
		connTimeout:   _defaultConnTimeout,
		reconnectWait: _defaultReconnectWait,
		drainTimeout:  _defaultDrainTimeout,
		url:           url,
	}

	for _, opt := range opts {
		opt(n)
	}

	var err error
	for n.connAttempts > 0 {
		err = n.connect()
		if err == nil {
			break
		}

		log.Printf("NATS is trying to connect, attempts left: %d", n.connAttempts)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("NATS - New: %w", ctx.Err())
		case <-time.After(n.connTimeout):
		}

		n.connAttempts--
	}

	if err != nil {
		return nil, fmt.Errorf("NATS - New - connAttempts == 0: %w", err)
	}

	return n, nil
}

func (n *NATS) connect() error {
	conn, err := nats.Connect(
		n.url,
		nats.Name(n.name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(n.reconnectWait),
		nats.DrainTimeout(n.drainTimeout),
	)
	if err != nil {
		return fmt.Errorf("NATS - nats.Connect: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()

		return fmt.Errorf("NATS - jetstream.New: %w", err)
	}

	n.Conn = conn
	n.JS = js

	return nil
}

// Healthy reports whether the connection is currently up.
func (n *NATS) Healthy() bool {
	return n.Conn != nil && n.Conn.IsConnected()
}

func (n *NATS) Close() error {
	if n.Conn == nil {
		return nil
	}

	err := n.Conn.Drain()
	if err != nil {
		n.Conn.Close()

		return fmt.Errorf("NATS - Close - n.Conn.Drain: %w", err)
	}

	return nil
}
