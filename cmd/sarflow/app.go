package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"sarflow/internal/agents/complianceofficer"
	agentmetrics "sarflow/internal/agents/metrics"
	"sarflow/internal/agents/riskanalyst"
	"sarflow/internal/casefile/service"
	"sarflow/internal/compliance"
	"sarflow/internal/llm"
	"sarflow/internal/pipeline"
	"sarflow/internal/platform/config"
	"sarflow/internal/platform/kafka"
	"sarflow/internal/platform/logger"
	"sarflow/internal/platform/metrics"
	"sarflow/internal/platform/redis"
	audit "sarflow/pkg/platform/audit"
	"sarflow/pkg/platform/audit/sink"
	"sarflow/pkg/platform/audit/store/memory"
	"sarflow/pkg/platform/circuit"
)

// app is the wired object graph shared by run and serve.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	trail    *audit.Logger
	pipeline *pipeline.Service
}

// newApp wires the pipeline. Logs go to logOut so that run can keep stdout
// for the report.
func newApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	log := logger.NewWithWriter(logOut, cfg.Logging)
	registry := prometheus.NewRegistry()

	trail, err := newAuditTrail(ctx, cfg, log, registry)
	if err != nil {
		return nil, err
	}

	gen, err := newGenerator(ctx, cfg.LLM)
	if err != nil {
		_ = trail.Close()
		return nil, err
	}
	log.Info("text generator ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	agentMetrics := agentmetrics.New(registry)
	procMetrics := metrics.New(registry)
	p := cfg.Pipeline

	assembler := service.New(trail,
		service.WithLogger(log),
		service.WithSourceLabelPrefix(p.SourceLabelPrefix),
	)
	analyst := riskanalyst.New(gen, trail,
		riskanalyst.WithLogger(log),
		riskanalyst.WithMetrics(agentMetrics),
		riskanalyst.WithSampling(p.RiskTemperature, p.RiskMaxTokens),
	)
	officer := complianceofficer.New(gen, trail,
		complianceofficer.WithLogger(log),
		complianceofficer.WithMetrics(agentMetrics),
		complianceofficer.WithSampling(p.NarrativeTemperature, p.NarrativeMaxTokens),
		complianceofficer.WithValidator(compliance.New(compliance.WithWordLimit(p.NarrativeWordLimit))),
	)

	return &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		metrics:  procMetrics,
		trail:    trail,
		pipeline: pipeline.New(assembler, analyst, officer,
			pipeline.WithLogger(log),
			pipeline.WithMetrics(procMetrics),
		),
	}, nil
}

func (a *app) Close() error {
	return a.trail.Close()
}

// newAuditTrail builds the in-memory trail with every configured durable
// sink. Remote sinks sit behind a circuit breaker.
func newAuditTrail(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*audit.Logger, error) {
	opts := []audit.Option{
		audit.WithLogger(log),
		audit.WithMetrics(audit.NewMetrics(reg)),
		audit.WithSinkTimeout(cfg.Audit.SinkTimeout),
	}
	var sinks []audit.Sink
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}
	guard := func(s audit.Sink) audit.Sink {
		breaker := circuit.New(s.Name(),
			circuit.WithFailureThreshold(cfg.Audit.BreakerFailures),
			circuit.WithCooldown(cfg.Audit.BreakerCooldown),
		)
		return sink.NewGuarded(s, breaker, log)
	}

	if cfg.Audit.LogPath != "" {
		var fileOpts []sink.FileOption
		if cfg.Audit.Fsync {
			fileOpts = append(fileOpts, sink.WithFsync())
		}
		f, err := sink.OpenFile(cfg.Audit.LogPath, fileOpts...)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, f)
		log.Info("audit file sink enabled", "path", f.Path())
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		closeAll()
		return nil, err
	}
	if rc != nil {
		sinks = append(sinks, guard(sink.NewRedisStream(rc, cfg.Redis.Stream)))
		log.Info("audit redis stream sink enabled", "stream", cfg.Redis.Stream)
	}

	kc, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		closeAll()
		return nil, err
	}
	if kc != nil {
		sinks = append(sinks, guard(sink.NewKafka(kc, cfg.Kafka.Topic)))
		log.Info("audit kafka sink enabled", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	for _, s := range sinks {
		opts = append(opts, audit.WithSink(s))
	}
	return audit.NewLogger(memory.NewInMemoryStore(), opts...), nil
}

func newGenerator(ctx context.Context, cfg config.LLMConfig) (llm.Generator, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return llm.NewGemini(ctx, cfg.APIKey, cfg.Model, llm.WithTimeout(cfg.Timeout))
	case config.ProviderScripted:
		if cfg.ScriptPath == "" {
			return nil, errors.New("scripted provider needs SARFLOW_LLM_SCRIPT or llm.script_path")
		}
		return llm.LoadScript(cfg.ScriptPath)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
