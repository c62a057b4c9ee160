package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"trustid/internal/auth/service"
	"trustid/internal/identity"
	"trustid/internal/platform/config"
	"trustid/internal/platform/metrics"
	platformredis "trustid/internal/platform/redis"
	"trustid/internal/session"
	sessionfile "trustid/internal/session/store/file"
	sessionmemory "trustid/internal/session/store/memory"
	sessionredis "trustid/internal/session/store/redis"
	"trustid/internal/workflow"
	"trustid/pkg/platform/audit"
	"trustid/pkg/platform/audit/publisher"
	auditkafka "trustid/pkg/platform/audit/store/kafka"
	auditmemory "trustid/pkg/platform/audit/store/memory"
	"trustid/pkg/platform/circuit"
)

const (
	auditBufferSize = 256
	// auditRetention matches the largest page the admin audit endpoint serves.
	auditRetention = 500
)

// app holds the wired process dependencies shared by every command.
type app struct {
	log       *zap.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	audit     *auditmemory.InMemoryStore
	publisher *publisher.Publisher
	kafka     *auditkafka.Sink
	redis     *platformredis.Client
	sessions  *session.Manager
	auth      *service.Service
	engine    *workflow.Engine
}

func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{
		log:      log,
		registry: prometheus.NewRegistry(),
		audit:    auditmemory.NewInMemoryStore(auditmemory.WithCapacity(auditRetention)),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	var sink audit.Sink = a.audit
	if len(cfg.Kafka.Brokers) > 0 {
		k, err := auditkafka.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return nil, err
		}
		if err := k.EnsureTopic(ctx, 1, 1); err != nil {
			log.Warn("audit topic bootstrap failed", zap.String("topic", cfg.Kafka.AuditTopic), zap.Error(err))
		}
		a.kafka = k
		sink = audit.MultiSink{a.audit, k}
	}
	a.publisher = publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
		publisher.WithDropHook(a.metrics.IncrementAuditDropped),
	)

	store, err := a.sessionStore(ctx, cfg)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.sessions = session.NewManager(store, session.WithLogger(log))

	breaker := circuit.New("verification-service",
		circuit.WithFailureThreshold(cfg.Breaker.FailureThreshold),
		circuit.WithOpenTimeout(cfg.Breaker.OpenTimeout),
	)
	identities := identity.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout,
		identity.WithBreaker(breaker),
		identity.WithMetrics(a.metrics),
		identity.WithLogger(log),
	)
	a.auth = service.New(identities, a.sessions,
		service.WithAuditor(a.publisher),
		service.WithMetrics(a.metrics),
		service.WithLogger(log),
	)

	a.engine = workflow.NewEngine(
		workflow.WithDwells(workflow.Dwells{
			Uploading: cfg.Workflow.UploadingDwell,
			Analyzing: cfg.Workflow.AnalyzingDwell,
			Verifying: cfg.Workflow.VerifyingDwell,
		}),
		workflow.WithAuditor(a.publisher),
		workflow.WithMetrics(a.metrics),
		workflow.WithLogger(log),
	)

	a.sessions.Restore(ctx)
	return a, nil
}

func (a *app) sessionStore(ctx context.Context, cfg config.Config) (session.RecordStore, error) {
	switch cfg.Session.Backend {
	case "memory":
		return sessionmemory.New(), nil
	case "redis":
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, errors.New("session backend redis requires REDIS_URL")
		}
		a.redis = client
		return sessionredis.New(client.Client, sessionredis.WithPrefix(cfg.Session.RedisPrefix)), nil
	case "file", "":
		return sessionfile.New(cfg.Session.Dir, sessionfile.WithSecret(cfg.Session.Secret))
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// Close stops the engine and drains audit delivery, bounded by ctx.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.engine != nil {
		a.engine.Stop()
	}
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close(ctx))
	}
	if a.kafka != nil {
		errs = append(errs, a.kafka.Close(ctx))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
