package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"trustplane/internal/anchor/certificate"
	anchorhandler "trustplane/internal/anchor/handler"
	anchormetrics "trustplane/internal/anchor/metrics"
	"trustplane/internal/anchor/publisher"
	"trustplane/internal/anchor/rootbuilder"
	"trustplane/internal/anchor/settlement"
	anchorstore "trustplane/internal/anchor/store/anchor"
	govhandler "trustplane/internal/governance/handler"
	govmetrics "trustplane/internal/governance/metrics"
	govmodels "trustplane/internal/governance/models"
	govservice "trustplane/internal/governance/service"
	chamberstore "trustplane/internal/governance/store/chamber"
	poolstore "trustplane/internal/governance/store/pool"
	"trustplane/internal/platform/config"
	"trustplane/internal/platform/httpserver"
	"trustplane/internal/platform/logger"
	appmetrics "trustplane/internal/platform/metrics"
	"trustplane/internal/platform/middleware"
	platformredis "trustplane/internal/platform/redis"
	"trustplane/internal/trust/engine"
	"trustplane/internal/trust/guard"
	trusthandler "trustplane/internal/trust/handler"
	trustmetrics "trustplane/internal/trust/metrics"
	trustmodels "trustplane/internal/trust/models"
	"trustplane/internal/trust/policy"
	trustports "trustplane/internal/trust/ports"
	"trustplane/internal/trust/quorum"
	actorstore "trustplane/internal/trust/store/actor"
	decisionstore "trustplane/internal/trust/store/decision"
	keystore "trustplane/internal/trust/store/keys"
	"trustplane/internal/verifier"
	verifierhandler "trustplane/internal/verifier/handler"
	verifiermetrics "trustplane/internal/verifier/metrics"
	id "trustplane/pkg/domain"
	"trustplane/pkg/platform/audit"
	auditpublisher "trustplane/pkg/platform/audit/publisher"
	auditmemory "trustplane/pkg/platform/audit/store/memory"
	auditworker "trustplane/pkg/platform/audit/worker"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage backends: Postgres and Redis when configured, in-memory
	// fallbacks for development.
	var (
		actors    trustports.ActorStore      = actorstore.New()
		decisions trustports.DecisionStore   = decisionstore.New()
		pools     govservice.PoolStore       = poolstore.New()
		anchors   publisher.AnchorStore      = anchorstore.New()
	)

	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		actors = actorstore.NewPostgres(db)
		anchors = anchorstore.NewPostgres(db)
		log.Info("postgres connected")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		decisions = decisionstore.NewRedis(redisClient.Client)
		pools = poolstore.NewRedis(redisClient.Client)
		log.Info("redis connected")
	}

	chambers := chamberstore.New()
	keys := keystore.New()

	// Audit pipeline: Kafka when brokers are configured, otherwise the
	// in-process worker over a buffered channel.
	g, ctx := errgroup.WithContext(ctx)
	var emitter audit.Emitter
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub, err := auditpublisher.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, auditpublisher.WithLogger(log))
		if err != nil {
			return err
		}
		defer kafkaPub.Close()
		emitter = kafkaPub
		log.Info("audit events publishing to kafka", "topic", cfg.Kafka.Topic)
	} else {
		channel := audit.NewChannelEmitter(1024)
		worker := auditworker.NewWorker(auditmemory.NewInMemoryStore(), channel.Inbox())
		g.Go(func() error { return worker.Run(ctx) })
		emitter = channel
	}

	// Trust core.
	rules := policy.NewRules(cfg.Trust)
	eng := engine.New(rules,
		engine.WithDecay(policy.LinearDormancyDecay(cfg.Trust.DecayPerDay, cfg.Trust.DecayGrace)),
	)
	tm := trustmetrics.New()
	guardSvc, err := guard.New(actors, decisions, eng, rules,
		guard.WithLogger(log),
		guard.WithAuditPublisher(emitter),
		guard.WithMetrics(tm),
	)
	if err != nil {
		return err
	}
	quorumSvc, err := quorum.New(actors, decisions, keys, guardSvc, cfg.Quorum,
		quorum.WithLogger(log),
		quorum.WithAuditPublisher(emitter),
		quorum.WithMetrics(tm),
	)
	if err != nil {
		return err
	}

	// Governance.
	govSvc, err := govservice.New(actors, pools, chambers, cfg.Chamber,
		govservice.WithLogger(log),
		govservice.WithAuditPublisher(emitter),
		govservice.WithMetrics(govmetrics.New()),
	)
	if err != nil {
		return err
	}

	// Anchoring.
	am := anchormetrics.New()
	roots, err := rootbuilder.New(map[id.DomainTag]rootbuilder.RecordSource{
		id.DomainTrustDeltas: rootbuilder.RecordSourceFunc(func(ctx context.Context) ([]any, error) {
			applied, err := guardSvc.Resolved(ctx)
			if err != nil {
				return nil, err
			}
			records := make([]any, 0, len(applied))
			for _, d := range applied {
				records = append(records, trustmodels.DeltaRecord(d))
			}
			return records, nil
		}),
		id.DomainChamberSelections: rootbuilder.RecordSourceFunc(func(ctx context.Context) ([]any, error) {
			chamber, err := govSvc.LatestChamber(ctx)
			if err != nil {
				return nil, err
			}
			return []any{govmodels.Record(chamber)}, nil
		}),
	},
		rootbuilder.WithLogger(log),
		rootbuilder.WithMetrics(am),
	)
	if err != nil {
		return err
	}

	certSvc, err := certificate.New(keys, cfg.Certificate,
		certificate.WithLogger(log),
		certificate.WithAuditPublisher(emitter),
		certificate.WithMetrics(am),
	)
	if err != nil {
		return err
	}

	settlementClient, err := settlement.New(cfg.Publisher.SettlementURL, settlement.WithLogger(log))
	if err != nil {
		return err
	}
	pubSvc, err := publisher.New(anchors, settlementClient, cfg.Publisher,
		publisher.WithLogger(log),
		publisher.WithAuditPublisher(emitter),
		publisher.WithMetrics(am),
	)
	if err != nil {
		return err
	}

	verifySvc, err := verifier.New(anchors, settlementClient, chambers, keys,
		verifier.WithLogger(log),
		verifier.WithAuditPublisher(emitter),
		verifier.WithMetrics(verifiermetrics.New()),
	)
	if err != nil {
		return err
	}

	// HTTP surface.
	jwtSvc := middleware.NewJWTService(cfg.Server.JWTSigningKey, "trustplane")
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(middleware.Metrics(appmetrics.New()))

	// Public surface: health, metrics, verification.
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	verifierhandler.New(verifySvc, log).Register(router)

	// Authenticated participant surface.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtSvc, log))
		trusthandler.New(guardSvc, quorumSvc, actors, keys, log).Register(r)
	})

	// Operator surface: governance and anchoring.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtSvc, log))
		r.Use(middleware.RequireOperatorSecret(cfg.Server.OperatorSecretHash, log))
		govhandler.New(govSvc, log).Register(r)
		anchorhandler.New(roots, certSvc, pubSvc, govSvc, log).Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g.Go(func() error {
		log.Info("starting trustplane", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
