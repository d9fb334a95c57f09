package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/car_dealership/internal/carquery"
	"github.com/Skotchmaster/car_dealership/internal/config"
	"github.com/Skotchmaster/car_dealership/internal/db"
	"github.com/Skotchmaster/car_dealership/internal/es"
	"github.com/Skotchmaster/car_dealership/internal/handlers"
	"github.com/Skotchmaster/car_dealership/internal/logging"
	authmw "github.com/Skotchmaster/car_dealership/internal/middleware/auth"
	"github.com/Skotchmaster/car_dealership/internal/mykafka"
	"github.com/Skotchmaster/car_dealership/internal/repo"
	"github.com/Skotchmaster/car_dealership/internal/service"
	httpserver "github.com/Skotchmaster/car_dealership/internal/transport/http"
	"github.com/Skotchmaster/car_dealership/internal/validation"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Error("db_init_failed", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Error("db_init_failed", "error", err)
		os.Exit(1)
	}

	var (
		publisher mykafka.Publisher = mykafka.Nop{}
		producer  *mykafka.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Error("kafka_init_failed", "error", err)
			os.Exit(1)
		}
		topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := mykafka.EnsureTopics(topicCtx, cfg.KafkaBrokers[0], mykafka.Topics...); err != nil {
			log.Warn("kafka_topics_not_created", "error", err)
		}
		cancel()
		publisher = producer
	} else {
		log.Info("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	var (
		carIndex      service.CarIndexer
		searchHandler *handlers.SearchHandler
	)
	if cfg.ESURL != "" {
		if client, err := es.NewClient(cfg, log); err != nil {
			log.Warn("es_disabled", "error", err)
		} else {
			idx := es.NewCarIndex(client, cfg.ESIndex)
			if err := idx.EnsureIndex(ctx); err != nil {
				log.Warn("es_index_not_created", "index", cfg.ESIndex, "error", err)
			}
			carIndex = idx
			searchHandler = handlers.NewSearchHandler(idx)
		}
	}

	r := repo.New(gdb)
	v := validation.New()
	authSvc := &service.AuthService{
		Repo:             r,
		Validator:        v,
		JWTSecret:        cfg.JWTSecret,
		TokenTTL:         cfg.JWTTTL,
		AllowAdminSignup: cfg.AllowAdminSignup,
	}
	if cfg.AdminUsername != "" {
		if err := authSvc.EnsureAdmin(logging.IntoContext(ctx, log), cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Error("admin_bootstrap_failed", "username", cfg.AdminUsername, "error", err)
			os.Exit(1)
		}
	}

	deps := &httpserver.Deps{
		Auth: authmw.NewAuthMiddleware(cfg.JWTSecret),
		AuthHandler: &handlers.AuthHandler{
			Svc:      authSvc,
			Producer: publisher,
		},
		CarHandler: &handlers.CarHandler{
			Svc:      &service.CarService{Repo: r, Validator: v, Index: carIndex},
			Producer: publisher,
		},
		CarInfoHandler: handlers.NewCarInfoHandler(carquery.NewClient(cfg.CarQueryURL)),
		CustomerHandler: &handlers.CustomerHandler{
			Svc:      &service.CustomerService{Repo: r, Validator: v},
			Producer: publisher,
		},
		SalesRecordHandler: &handlers.SalesRecordHandler{
			Svc:      &service.SalesRecordService{Repo: r, Validator: v},
			Producer: publisher,
		},
		SearchHandler: searchHandler,
		Ready:         sqlDB.PingContext,
		RateLimit:     cfg.RateLimitEnabled,
	}

	e := httpserver.NewServer(log, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_server_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_error", "error", err)
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("db_close_error", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("kafka_close_error", "error", err)
		}
	}

	log.Info("shutdown_complete")
}
