package app

import (
	"context"
	"errors"

	"project-pulse/config"
	middle "project-pulse/internals/middleware"
	"project-pulse/internals/modules/alert"
	"project-pulse/internals/modules/health"
	"project-pulse/internals/modules/notify"
	"project-pulse/internals/modules/performance"
	"project-pulse/internals/modules/probe"
	"project-pulse/internals/modules/report"
	"project-pulse/internals/modules/resilience"
	"project-pulse/internals/modules/scheduler"
	"project-pulse/internals/modules/status"
	"project-pulse/internals/security"
	"project-pulse/pkg/db"
	"project-pulse/pkg/httpclient"
	"project-pulse/pkg/logger"
	"project-pulse/pkg/metrics"
	"project-pulse/pkg/rabbitmq"
	"project-pulse/pkg/redisstore"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// MonitoringContext owns every long-lived handle of the monitor: the DB
// pool, the alert history backend, the broker, the policy engine and the
// scheduler. It is built once at start and torn down by Shutdown.
type MonitoringContext struct {
	Config    *config.Config
	Logger    *zerolog.Logger
	DB        *pgxpool.Pool
	Redis     *redisstore.Client
	AMQP      *amqp091.Connection
	Publisher *rabbitmq.Publisher
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Alerts    *alert.AlertService
	Reports   *report.Store
	Scheduler *scheduler.Scheduler
	Tasks     *scheduler.Tasks

	statusHandler *status.Handler
	authMW        *middle.AuthMiddleware
}

func NewMonitoringContext(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*MonitoringContext, error) {
	mc := &MonitoringContext{Config: cfg, Logger: log}

	mc.Registry = prometheus.NewRegistry()
	mc.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc.Metrics = metrics.New(mc.Registry)

	if err := mc.connect(ctx); err != nil {
		mc.Shutdown(ctx)
		return nil, err
	}

	client := httpclient.NewHttpClient()

	// Probes
	suite := &probe.Suite{
		HTTP:     probe.NewHTTPProber(client, cfg.BaseURL),
		Timeouts: probe.TimeoutsFromConfig(cfg.Timeouts),
		Metrics:  mc.Metrics,
	}
	var rollback health.Rollback
	var pinger resilience.Pinger
	if mc.DB != nil {
		dbProber := probe.NewDBProber(mc.DB)
		suite.DB = dbProber
		pinger = mc.DB
		rollback = health.Rollback{
			Enabled:   cfg.Targets.Rollback.Enabled,
			Statement: cfg.Targets.Rollback.Statement,
			Prober:    dbProber,
		}
	} else {
		suite.DB = probe.NewDBProber(nil)
	}
	targets := probe.TargetsFromConfig(cfg.Targets)

	// Policy engine
	var history alert.HistoryStore = alert.NewFileHistory(cfg.Alerts.HistoryPath)
	if mc.Redis != nil {
		history = alert.NewBlobHistory(mc.Redis)
	}
	var pub notify.Publisher
	if mc.Publisher != nil {
		pub = mc.Publisher
	}
	sinks := notify.BuildSinks(cfg, client, pub, logger.Component(log, "notify"))
	mc.Alerts = alert.NewAlertService(ctx, alert.Policy{
		DedupWindow: cfg.Alerts.DedupWindow,
		RateWindow:  cfg.Alerts.RateWindow,
		RateLimit:   cfg.Alerts.RateLimit,
		MaxEntries:  cfg.Alerts.HistoryMaxEntries,
	}, history, sinks, logger.Component(log, "alerts"), alert.WithMetrics(mc.Metrics))

	// Reports
	var storeOpts []report.Option
	if cfg.Reports.Archive.Enabled {
		archive, err := report.NewS3Archive(ctx, cfg.Reports.Archive, logger.Component(log, "archive"))
		if err != nil {
			log.Error().Err(err).Msg("report archive unavailable, keeping reports local only")
		} else {
			storeOpts = append(storeOpts, report.WithArchive(archive))
		}
	}
	mc.Reports = report.NewStore(cfg.Reports.Dir, logger.Component(log, "reports"), storeOpts...)

	// Batteries
	sampler := probe.NewRuntimeSampler()
	mc.Tasks = &scheduler.Tasks{
		Health: health.NewEvaluator(health.Options{
			Suite:   suite,
			Targets: targets,
			Thresholds: probe.Thresholds{
				APIMs:  cfg.Thresholds.APIMs,
				PageMs: cfg.Thresholds.PageMs,
				DBMs:   cfg.Thresholds.DBHealthMs,
			},
			HeapRatio: cfg.Thresholds.HeapRatio,
			Sampler:   sampler,
			Rollback:  rollback,
			Logger:    logger.Component(log, "health"),
		}),
		Performance: performance.NewSampler(performance.Options{
			Suite:   suite,
			Targets: targets,
			Thresholds: probe.Thresholds{
				APIMs:  cfg.Thresholds.APIMs,
				PageMs: cfg.Thresholds.PageMs,
				DBMs:   cfg.Thresholds.DBPerfMs,
			},
			HeapRatio: cfg.Thresholds.HeapRatio,
			Samples:   cfg.Sampler.Samples,
			Delay:     cfg.Sampler.Delay,
			Sampler:   sampler,
			Logger:    logger.Component(log, "performance"),
		}),
		Resilience: resilience.NewBattery(resilience.Options{
			DB:      pinger,
			Suite:   suite,
			Targets: targets,
			Logger:  logger.Component(log, "resilience"),
		}),
		Load: resilience.NewLoadTester(resilience.LoadOptions{
			Suite:          suite,
			Targets:        targets.API,
			Requests:       cfg.Load.Requests,
			Concurrency:    cfg.Load.Concurrency,
			ErrorRateLimit: cfg.Load.ErrorRateLimit,
			Logger:         logger.Component(log, "load"),
		}),
		Alerts:       mc.Alerts,
		Reports:      mc.Reports,
		DashboardDir: cfg.Dashboard.Dir,
		Retention:    cfg.Reports.Retention,
		Metrics:      mc.Metrics,
		Logger:       logger.Component(log, "tasks"),
	}

	mc.Scheduler = scheduler.NewScheduler(logger.Component(log, "scheduler"), mc.Metrics)
	if err := mc.Tasks.Register(mc.Scheduler, cfg.Schedules); err != nil {
		mc.Shutdown(ctx)
		return nil, err
	}

	// Status API
	tokenSvc, err := security.NewTokenService(&cfg.Auth)
	switch {
	case errors.Is(err, security.ErrNoSecret):
		log.Warn().Msg("auth.secret not set, manual run trigger API disabled")
	case err != nil:
		mc.Shutdown(ctx)
		return nil, err
	default:
		mc.authMW = middle.NewAuthMiddleware(tokenSvc)
	}
	mc.statusHandler = status.NewHandler(mc.Reports, mc.Alerts, mc.Scheduler, validator.New(), logger.Component(log, "status"))

	return mc, nil
}

// connect opens the external handles. A configured history backend is
// required; the database and broker degrade to failing probes and a
// missing sink respectively.
func (mc *MonitoringContext) connect(ctx context.Context) error {
	cfg, log := mc.Config, mc.Logger

	if cfg.DB.URL != "" {
		pool, err := db.ConnectToDB(ctx, &cfg.DB, cfg.ServiceName, log)
		if err != nil {
			log.Error().Err(err).Msg("database unreachable, db probes will report failures")
		} else {
			mc.DB = pool
		}
	} else {
		log.Warn().Msg("db.url not set, db probes disabled")
	}

	if cfg.Alerts.HistoryBackend == "redis" {
		rc, err := redisstore.New(&cfg.Redis)
		if err != nil {
			return err
		}
		mc.Redis = rc
		log.Info().Str("addr", cfg.Redis.Addr).Msg("alert history stored in redis")
	}

	if cfg.Notify.Broker.Enabled {
		conn, err := rabbitmq.NewConnection(&cfg.RabbitMQ, log)
		if err != nil {
			log.Error().Err(err).Msg("broker unreachable, broker sink disabled")
			return nil
		}
		if err := rabbitmq.SetupTopology(conn, &cfg.RabbitMQ); err != nil {
			conn.Close()
			log.Error().Err(err).Msg("broker topology setup failed, broker sink disabled")
			return nil
		}
		pub, err := rabbitmq.NewPublisher(conn, cfg.RabbitMQ.ExchangeName, cfg.RabbitMQ.RoutingKey)
		if err != nil {
			conn.Close()
			log.Error().Err(err).Msg("broker publisher failed, broker sink disabled")
			return nil
		}
		mc.AMQP, mc.Publisher = conn, pub
	}

	return nil
}

func (mc *MonitoringContext) Start() {
	mc.Scheduler.Start()
}

// Shutdown stops the scheduler, waiting for in-flight runs, then closes
// the broker, Redis and DB handles in that order.
func (mc *MonitoringContext) Shutdown(ctx context.Context) error {
	if mc.Scheduler != nil {
		done := make(chan struct{})
		go func() {
			mc.Scheduler.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			mc.Logger.Warn().Msg("in-flight runs did not finish before shutdown deadline")
		}
	}

	var errs []error
	if mc.Publisher != nil {
		errs = append(errs, mc.Publisher.Close())
	}
	if mc.AMQP != nil {
		errs = append(errs, mc.AMQP.Close())
	}
	if mc.Redis != nil {
		errs = append(errs, mc.Redis.Close())
	}
	if mc.DB != nil {
		mc.DB.Close()
	}
	return errors.Join(errs...)
}
