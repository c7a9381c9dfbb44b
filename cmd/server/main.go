package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"smartgn/internal/authz"
	"smartgn/internal/files"
	identityhandler "smartgn/internal/identity/handler"
	"smartgn/internal/identity/lockout"
	identitymodels "smartgn/internal/identity/models"
	"smartgn/internal/identity/revocation"
	identityservice "smartgn/internal/identity/service"
	identitymemory "smartgn/internal/identity/store/memory"
	identitypg "smartgn/internal/identity/store/postgres"
	"smartgn/internal/identity/token"
	"smartgn/internal/platform/config"
	"smartgn/internal/platform/database"
	"smartgn/internal/platform/health"
	"smartgn/internal/platform/kafka"
	"smartgn/internal/platform/kafka/producer"
	"smartgn/internal/platform/logger"
	"smartgn/internal/platform/metrics"
	"smartgn/internal/platform/redis"
	"smartgn/internal/platform/tracer"
	profileshandler "smartgn/internal/profiles/handler"
	profilesservice "smartgn/internal/profiles/service"
	profilesmemory "smartgn/internal/profiles/store/memory"
	profilespg "smartgn/internal/profiles/store/postgres"
	requestshandler "smartgn/internal/requests/handler"
	requestsservice "smartgn/internal/requests/service"
	requestsmemory "smartgn/internal/requests/store/memory"
	requestspg "smartgn/internal/requests/store/postgres"
	"smartgn/internal/seeder"
	servicetypeshandler "smartgn/internal/servicetypes/handler"
	servicetypesservice "smartgn/internal/servicetypes/service"
	servicetypesmemory "smartgn/internal/servicetypes/store/memory"
	servicetypespg "smartgn/internal/servicetypes/store/postgres"
	"smartgn/internal/stats"
	httptransport "smartgn/internal/transport/http"
	"smartgn/migrations"
	"smartgn/pkg/platform/circuit"
	"smartgn/pkg/platform/middleware/request"
	"smartgn/pkg/platform/outbox"
	outboxmetrics "smartgn/pkg/platform/outbox/metrics"
	outboxmemory "smartgn/pkg/platform/outbox/store/memory"
	outboxpg "smartgn/pkg/platform/outbox/store/postgres"
	"smartgn/pkg/platform/outbox/worker"
)

const (
	topicPartitions  = 3
	topicReplication = 1
	eventRetention   = 7 * 24 * time.Hour
)

// stores holds one backend per collection, Postgres or in-memory.
type stores struct {
	citizens     identityservice.Store[*identitymodels.Citizen]
	officers     identityservice.Store[*identitymodels.Officer]
	requests     requestsservice.Store
	serviceTypes servicetypesservice.Store
	profiles     profilesservice.Store
	outbox       outbox.Store
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	seedMode := flag.String("seed", "", `seed starter data on boot: "catalog" or "demo" (catalog plus demo accounts)`)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *seedMode, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, seedMode string, log *slog.Logger) error {
	log.Info("initializing smartgn",
		"addr", cfg.Server.Addr,
		"environment", string(cfg.Environment),
	)

	checks := health.New(string(cfg.Environment))
	appMetrics := metrics.New()
	traces := tracer.NewOTel()

	st, closeStores, err := openStores(ctx, cfg, checks, log)
	if err != nil {
		return err
	}
	defer closeStores()

	shared, closeRedis, err := openRedis(ctx, cfg, checks, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	stopWorker, err := startOutbox(ctx, cfg, st.outbox, checks, log)
	if err != nil {
		return err
	}

	uploads, err := files.NewLocal(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("prepare upload directory: %w", err)
	}

	jwt := token.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	guard := lockout.New(shared.lockouts,
		lockout.WithPolicy(lockout.Policy(cfg.Auth.Lockout)),
		lockout.WithLogger(log),
		lockout.WithMetrics(appMetrics),
	)
	identityOpts := []identityservice.Option{
		identityservice.WithLogger(log),
		identityservice.WithMetrics(appMetrics),
		identityservice.WithLoginGuard(guard),
	}
	citizens := identityservice.NewCitizenIssuer(st.citizens, jwt, identityOpts...)
	officers := identityservice.NewOfficerIssuer(st.officers, jwt, authz.RoleVillageOfficer, identityOpts...)
	admins := identityservice.NewOfficerIssuer(st.officers, jwt, authz.RoleAdmin, identityOpts...)
	sessions := identityservice.NewSessions(shared.revocations, identityservice.WithLogger(log), identityservice.WithMetrics(appMetrics))

	requests := requestsservice.New(st.requests, officers, uploads,
		requestsservice.WithLogger(log),
		requestsservice.WithMetrics(appMetrics),
		requestsservice.WithTracer(traces),
	)
	dashboards := stats.New(st.requests, citizens, stats.WithLogger(log), stats.WithTracer(traces))
	catalog := servicetypesservice.New(st.serviceTypes,
		servicetypesservice.WithLogger(log),
		servicetypesservice.WithMetrics(appMetrics),
	)
	profiles := profilesservice.New(st.profiles, citizens,
		profilesservice.WithLogger(log),
		profilesservice.WithMetrics(appMetrics),
		profilesservice.WithTracer(traces),
	)

	if err := seed(ctx, seedMode, cfg.Environment, catalog, citizens, officers, log); err != nil {
		return err
	}

	proxies, err := parsePrefixes(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Modules{
		Identity:     identityhandler.New(citizens, officers, admins, sessions, log),
		Requests:     requestshandler.New(requests, cfg.Uploads.MaxBytes, log),
		Stats:        stats.NewHandler(dashboards, log),
		ServiceTypes: servicetypeshandler.New(catalog, log),
		Profiles:     profileshandler.New(profiles, log),
		Health:       checks,
		Uploads:      uploads.Handler(),
		Metrics:      promhttp.Handler(),
	}, httptransport.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		TrustedProxies: proxies,
		AdminToken:     cfg.Auth.AdminToken,
		Tokens:         jwt,
		Revocations:    sessions,
		Latency:        request.NewMetrics(),
	}, log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := stopWorker(shutdownCtx); err != nil {
		log.Warn("outbox worker did not drain", "error", err)
	}
	return nil
}

// openStores selects Postgres when a database URL is configured and the
// in-memory stores otherwise.
func openStores(ctx context.Context, cfg *config.Config, checks *health.Handler, log *slog.Logger) (stores, func(), error) {
	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		return stores{}, nil, err
	}
	if pool == nil {
		log.Warn("no database configured, using in-memory stores")
		events := outboxmemory.New()
		return stores{
			citizens:     identitymemory.New[*identitymodels.Citizen](),
			officers:     identitymemory.New[*identitymodels.Officer](),
			requests:     requestsmemory.New(events),
			serviceTypes: servicetypesmemory.New(),
			profiles:     profilesmemory.New(),
			outbox:       events,
		}, func() {}, nil
	}

	if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
		pool.Close() //nolint:errcheck // best-effort cleanup on init failure
		return stores{}, nil, fmt.Errorf("migrate database: %w", err)
	}
	checks.RegisterCheck("postgres", pool.Health)

	db := pool.DB()
	closeDB := func() {
		if err := pool.Close(); err != nil {
			log.Warn("close database", "error", err)
		}
	}
	return stores{
		citizens:     identitypg.NewCitizenStore(db),
		officers:     identitypg.NewOfficerStore(db),
		requests:     requestspg.New(db),
		serviceTypes: servicetypespg.New(db),
		profiles:     profilespg.New(db),
		outbox:       outboxpg.New(db),
	}, closeDB, nil
}

// sessionState is the login state that Redis shares between replicas.
type sessionState struct {
	revocations identityservice.RevocationList
	lockouts    lockout.Store
}

// openRedis backs logout and login lockout with Redis when configured.
func openRedis(ctx context.Context, cfg *config.Config, checks *health.Handler, log *slog.Logger) (sessionState, func(), error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return sessionState{}, nil, err
	}
	if client == nil {
		log.Warn("no redis configured, token revocations and lockouts are process local")
		return sessionState{
			revocations: revocation.NewMemoryList(),
			lockouts:    lockout.NewMemoryStore(),
		}, func() {}, nil
	}

	checks.RegisterCheck("redis", client.Health)
	go client.Run(ctx)

	closeClient := func() {
		if err := client.Close(); err != nil {
			log.Warn("close redis", "error", err)
		}
	}
	return sessionState{
		revocations: revocation.NewRedisList(client.Client),
		lockouts:    lockout.NewRedisStore(client.Client),
	}, closeClient, nil
}

// startOutbox relays request lifecycle events to Kafka. Without brokers the
// events stay in the outbox.
func startOutbox(ctx context.Context, cfg *config.Config, store outbox.Store, checks *health.Handler, log *slog.Logger) (func(context.Context) error, error) {
	brokers := cfg.Kafka.BrokerList()
	if len(brokers) == 0 {
		log.Warn("no kafka brokers configured, request events are not published")
		return func(context.Context) error { return nil }, nil
	}

	prod, err := producer.New(producer.Config{
		Brokers: brokers,
		Acks:    cfg.Kafka.Acks,
		Retries: cfg.Kafka.Retries,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	admin := kafka.NewAdmin(prod.Client())
	if err := admin.EnsureTopic(ctx, cfg.Kafka.Topic, topicPartitions, topicReplication); err != nil {
		log.Warn("ensure kafka topic", "topic", cfg.Kafka.Topic, "error", err)
	}
	checks.RegisterCheck("kafka", admin.Check)

	w := worker.New(store, prod,
		worker.WithTopic(cfg.Kafka.Topic),
		worker.WithBatchSize(cfg.Kafka.BatchSize),
		worker.WithPollInterval(cfg.Kafka.PollInterval),
		worker.WithRetention(eventRetention),
		worker.WithMetrics(outboxmetrics.New()),
		worker.WithLogger(log),
		worker.WithBreaker(circuit.New("kafka")),
	)
	w.Start()

	return func(ctx context.Context) error {
		err := w.Stop(ctx)
		if cerr := prod.Close(); cerr != nil {
			log.Warn("close kafka producer", "error", cerr)
		}
		return err
	}, nil
}

func parsePrefixes(raw []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(raw))
	for _, s := range raw {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", s, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func seed(
	ctx context.Context,
	mode string,
	env config.Environment,
	catalog seeder.Catalog,
	citizens seeder.Registrar[*identitymodels.Citizen],
	officers seeder.Registrar[*identitymodels.Officer],
	log *slog.Logger,
) error {
	switch mode {
	case "":
		return nil
	case "catalog":
		_, err := seeder.New(catalog, nil, nil, log).SeedCatalog(ctx)
		if err != nil {
			return fmt.Errorf("seed service types: %w", err)
		}
		return nil
	case "demo":
		if env == config.Production {
			return errors.New("demo accounts cannot be seeded in production")
		}
		return seeder.New(catalog, citizens, officers, log).SeedAll(ctx)
	default:
		return fmt.Errorf("unknown seed mode %q", mode)
	}
}
