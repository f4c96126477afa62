package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/cors"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/qrcode"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/repository"
)

func (a *App) initConfig() {
	path := a.configPath
	if path == "" {
		path = config.Path("./config/config.yaml")
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "path", path, "error", err)
		os.Exit(1)
	}

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(a.ctx, &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("app.name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: float64(a.config.GetInt("instrument.trace_sample_percent")) / 100,
		MetricsInterval:  a.config.GetDuration("instrument.metric_interval"),
		MaskFields:       a.config.GetArray("instrument.mask_fields"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.bcrypt = hash.NewBcrypt(a.config.GetInt("hash.bcrypt.cost"), a.config.GetString("hash.bcrypt.pepper"))
	a.secrets = otp.NewSecretGenerator()
	a.totp = otp.NewEngine()
	a.qrcode = qrcode.NewPNG(a.config.GetInt("otp.qr_size"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator
}

func (a *App) initRepository() {
	driver := a.config.GetString("repository.driver")
	connectTimeout := a.config.GetDuration("repository.connect.timeout")
	if connectTimeout <= 0 {
		connectTimeout = time.Minute
	}

	ctx, cancel := context.WithTimeout(a.ctx, connectTimeout)
	defer cancel()

	repo, err := repository.NewFromDriver(ctx, driver, repository.FactoryOptions{
		Postgres: repository.PostgresConfig{
			URL:      a.config.GetString("repository.postgres.url"),
			MaxConns: int32(a.config.GetInt("repository.postgres.max_conns")), //nolint:gosec // small config value
		},
		Mongo: repository.MongoConfig{
			URL:        a.config.GetString("repository.mongo.url"),
			Database:   a.config.GetString("repository.mongo.database"),
			Collection: a.config.GetString("repository.mongo.collection"),
		},
		Redis: repository.RedisConfig{
			URL:    a.config.GetString("repository.redis.url"),
			Prefix: a.config.GetString("repository.redis.prefix"),
		},
		ConnectRetries: uint64(max(a.config.GetInt("repository.connect.retries"), 0)),
		ConnectBackoff: a.config.GetDuration("repository.connect.backoff"),
		Instrument:     a.ins,
	})
	if err != nil {
		slog.Error("failed to init repository", "driver", driver, "error", err)
		os.Exit(1)
	}

	slog.Info("repository ready", "driver", driver)
	a.repository = repository.NewLocked(repo, a.config.GetDuration("repository.call_timeout"))
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")
	client, err := messaging.NewFromDriver(driver, messaging.FactoryOptions{
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("app.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetDuration("messaging.nats.timeout")),
				nats.ReconnectWait(a.config.GetDuration("messaging.nats.reconnect_wait")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		Kafka: messaging.KafkaConfig{
			Brokers:      a.config.GetArray("messaging.kafka.brokers"),
			BatchTimeout: a.config.GetDuration("messaging.kafka.batch_timeout"),
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		Instrument: a.ins,
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors.allowed_origins"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetDuration("app.server.http.read_timeout"),
		ReadHeaderTimeout: a.config.GetDuration("app.server.http.read_timeout"),
		WriteTimeout:      a.config.GetDuration("app.server.http.write_timeout"),
		IdleTimeout:       a.config.GetDuration("app.server.http.idle_timeout"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Messaging",
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "Repository",
			fn: func(ctx context.Context) error {
				return a.repository.Close(ctx)
			},
		},
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
