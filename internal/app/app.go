// Package app wires the gateway, worker, reconciler and migrate processes.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andreyxaxa/Spectra/config"
	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	infrajs "github.com/andreyxaxa/Spectra/internal/infrastructure/jetstream"
	infrakafka "github.com/andreyxaxa/Spectra/internal/infrastructure/kafka"
	"github.com/andreyxaxa/Spectra/internal/repo"
	"github.com/andreyxaxa/Spectra/internal/repo/persistent"
	"github.com/andreyxaxa/Spectra/pkg/kafka/consumer"
	"github.com/andreyxaxa/Spectra/pkg/kafka/producer"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/andreyxaxa/Spectra/pkg/natsjs"
	"github.com/andreyxaxa/Spectra/pkg/s3client"
)

// Topology is the exchange with both queues, declared by every process at start.
func Topology(cfg *config.Config) infrastructure.Topology {
	return infrastructure.Topology{
		Exchange: cfg.Broker.Exchange,
		Bindings: []infrastructure.Binding{
			{Queue: cfg.Broker.ReceivedQueue, RoutingKey: infrastructure.RoutingKeyReceived},
			{Queue: cfg.Broker.ProcessedQueue, RoutingKey: infrastructure.RoutingKeyProcessed},
		},
	}
}

func newBlobRepo(ctx context.Context, cfg *config.Config) (repo.BlobRepo, error) {
	switch cfg.Blob.Driver {
	case config.BlobDriverFS:
		r, err := persistent.NewFSBlobRepo(cfg.Blob.Root)
		if err != nil {
			return nil, fmt.Errorf("app - newBlobRepo - persistent.NewFSBlobRepo: %w", err)
		}
		return r, nil
	case config.BlobDriverS3:
		s3Ctx, s3Cancel := context.WithTimeout(ctx, cfg.S3.CfgLoadTimeout)
		defer s3Cancel()

		s3c, err := s3client.New(s3Ctx, cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Bucket,
			s3client.Region(cfg.S3.Region),
			s3client.CreateBucket(cfg.S3.CreateBucket),
		)
		if err != nil {
			return nil, fmt.Errorf("app - newBlobRepo - s3client.New: %w", err)
		}
		return persistent.NewS3BlobRepo(s3c), nil
	default:
		return nil, fmt.Errorf("app - newBlobRepo - unknown driver %q", cfg.Blob.Driver)
	}
}

// brokerConn is one connection to the configured broker driver.
type brokerConn struct {
	publisher   infrastructure.EventPublisher
	declarer    infrastructure.TopologyDeclarer
	newConsumer func(ctx context.Context, binding infrastructure.Binding) (infrastructure.EventConsumer, error)
	ready       func() bool
	close       func() error
}

// newBroker connects and declares the topology before anything is published or consumed.
func newBroker(ctx context.Context, cfg *config.Config, l logger.Interface) (*brokerConn, error) {
	var (
		b   *brokerConn
		err error
	)

	switch cfg.Broker.Driver {
	case config.BrokerDriverJetStream:
		b, err = newJetStreamBroker(ctx, cfg)
	case config.BrokerDriverKafka:
		b, err = newKafkaBroker(ctx, cfg)
	default:
		err = fmt.Errorf("unknown driver %q", cfg.Broker.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("app - newBroker: %w", err)
	}

	topology := Topology(cfg)

	err = b.declarer.Declare(ctx, topology)
	if err != nil {
		_ = b.close()
		return nil, fmt.Errorf("app - newBroker - b.declarer.Declare: %w", err)
	}

	l.Info("app - newBroker - %s topology declared, exchange=%s", cfg.Broker.Driver, topology.Exchange)

	return b, nil
}

func newJetStreamBroker(ctx context.Context, cfg *config.Config) (*brokerConn, error) {
	nc, err := natsjs.New(ctx, cfg.NATS.URL, natsjs.Name("spectra"))
	if err != nil {
		return nil, fmt.Errorf("natsjs.New: %w", err)
	}

	return &brokerConn{
		publisher: infrajs.NewEventProducer(nc.JS),
		declarer:  infrajs.NewTopologyDeclarer(nc.JS, cfg.NATS.AckWait, cfg.NATS.MaxDeliver),
		newConsumer: func(ctx context.Context, b infrastructure.Binding) (infrastructure.EventConsumer, error) {
			return infrajs.NewEventConsumer(ctx, nc.JS, cfg.Broker.Exchange, b.Queue, cfg.NATS.FetchBatch)
		},
		ready: nc.Healthy,
		close: nc.Close,
	}, nil
}

func newKafkaBroker(ctx context.Context, cfg *config.Config) (*brokerConn, error) {
	p, err := producer.New(ctx, cfg.Kafka.Brokers)
	if err != nil {
		return nil, fmt.Errorf("producer.New: %w", err)
	}

	return &brokerConn{
		publisher: infrakafka.NewEventProducer(p.Writer, cfg.Broker.Exchange),
		declarer:  infrakafka.NewTopologyDeclarer(cfg.Kafka.Brokers[0], cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor),
		newConsumer: func(ctx context.Context, b infrastructure.Binding) (infrastructure.EventConsumer, error) {
			topic := infrakafka.TopicName(cfg.Broker.Exchange, b.RoutingKey)

			c, err := consumer.New(ctx, cfg.Kafka.Brokers, b.Queue, topic)
			if err != nil {
				return nil, fmt.Errorf("consumer.New: %w", err)
			}
			return infrakafka.NewEventConsumer(c, p.Writer, b.RoutingKey), nil
		},
		ready: func() bool { return true },
		close: p.Close,
	}, nil
}

// waitSignal blocks until SIGINT/SIGTERM or the first error from notify.
func waitSignal(l logger.Interface, process string, notify <-chan error) {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info("app - %s - signal: %s", process, s.String())
	case err := <-notify:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error(fmt.Errorf("app - %s - httpServer.Notify: %w", process, err))
		}
	}
}
