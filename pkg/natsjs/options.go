package natsjs

import "time"

type Option func(*NATS)

func ConnAttempts(attempts int) Option {
	return func(n *NATS) {
		n.connAttempts = attempts
	}
}

func ConnTimeout(timeout time.Duration) Option {
	return func(n *NATS) {
		n.connTimeout = timeout
	}
}

func ReconnectWait(wait time.Duration) Option {
	return func(n *NATS) {
		n.reconnectWait = wait
	}
}

func Name(name string) Option {
	return func(n *NATS) {
		n.name = name
	}
}
