package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ParcelBox/config"
	trackingsapi "github.com/BearBump/ParcelBox/internal/api/trackings_api"
	"github.com/BearBump/ParcelBox/internal/broker/kafka"
	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/integrations/backend"
	"github.com/BearBump/ParcelBox/internal/integrations/provider"
	"github.com/BearBump/ParcelBox/internal/integrations/provider/fake"
	"github.com/BearBump/ParcelBox/internal/integrations/provider/seventeentrack"
	"github.com/BearBump/ParcelBox/internal/metrics"
	"github.com/BearBump/ParcelBox/internal/services/audit"
	"github.com/BearBump/ParcelBox/internal/services/deletion"
	"github.com/BearBump/ParcelBox/internal/services/identity"
	"github.com/BearBump/ParcelBox/internal/services/monitored"
	"github.com/BearBump/ParcelBox/internal/services/pushinit"
	"github.com/BearBump/ParcelBox/internal/services/registration"
	"github.com/BearBump/ParcelBox/internal/storage/pgattempts"
	"github.com/BearBump/ParcelBox/internal/storage/rediskv"
	"github.com/BearBump/ParcelBox/internal/workflow"
)

type appFactories struct {
	newProvider   func(cfg *config.Config) provider.Client
	newPublisher  func(cfg *config.Config) (audit.Publisher, func())
	newAttemptLog func(cfg *config.Config) (*pgattempts.Storage, func())
}

func defaultAppFactories() appFactories {
	return appFactories{
		newProvider: func(cfg *config.Config) provider.Client {
			timeout := time.Duration(cfg.Provider.TimeoutSeconds) * time.Second
			switch cfg.Provider.Mode {
			case "fake":
				return fake.New()
			default:
				return seventeentrack.New(cfg.Provider.BaseURL, cfg.Provider.APIKey, timeout)
			}
		},
		newPublisher: func(cfg *config.Config) (audit.Publisher, func()) {
			if cfg.Kafka.Host == "" {
				return nil, func() {}
			}
			p := kafka.NewProducer([]string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)})
			return p, func() { _ = p.Close() }
		},
		newAttemptLog: func(cfg *config.Config) (*pgattempts.Storage, func()) {
			if cfg.Database.Host == "" {
				return nil, func() {}
			}
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st := mustOpenPostgresWithRetry(connString, 60*time.Second)
			return st, st.Close
		},
	}
}

type trackApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   trackAppOpts
	api    *trackingsapi.TrackingsAPI
	push   pushInitializer

	closers []func()
}

func mustBootstrapTrackApp() *trackApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	app := buildTrackApp(cfg, defaultAppFactories())
	app.opts.swaggerPath = swaggerPath
	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return app
}

func buildTrackApp(cfg *config.Config, f appFactories) *trackApp {
	httpAddr := cfg.ParcelBox.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	prefix := cfg.Redis.KeyPrefix
	if prefix == "" {
		prefix = "parcelbox:"
	}
	topic := cfg.Kafka.TransitionsTopicName
	if topic == "" {
		topic = messages.TopicWorkflowTransitions
	}
	settle := time.Duration(cfg.ParcelBox.SettleDelayMillis) * time.Millisecond
	if settle <= 0 {
		settle = registration.DefaultSettleDelay
	}
	submitWindow := time.Duration(cfg.ParcelBox.SubmitWindowSeconds) * time.Second
	if submitWindow <= 0 {
		submitWindow = 30 * time.Second
	}
	backendTimeout := time.Duration(cfg.Backend.TimeoutSeconds) * time.Second

	app := &trackApp{}

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	kv := rediskv.New(redisAddr, prefix)
	guard := rediskv.NewSubmitGuard(redisAddr, submitWindow)
	app.closers = append(app.closers, func() { _ = kv.Close() }, func() { _ = guard.Close() })

	ids := identity.New(kv)
	prov := f.newProvider(cfg)
	bc := backend.New(cfg.Backend.BaseURL, backendTimeout)

	subs := []workflow.Subscriber{metrics.Subscriber{}}
	pub, closePub := f.newPublisher(cfg)
	app.closers = append(app.closers, closePub)
	if pub != nil {
		subs = append(subs, audit.NewTransitionPublisher(pub, topic))
	}

	deps := trackingsapi.Deps{Guard: guard}
	st, closeDB := f.newAttemptLog(cfg)
	app.closers = append(app.closers, closeDB)
	if st != nil {
		subs = append(subs, audit.NewAttemptRecorder(st))
		deps.Attempts = st
	}

	push := pushinit.New(ids, bc)
	deps.Registrar = registration.New(prov, bc, ids, subs...).WithSettleDelay(settle)
	deps.Deleter = deletion.New(prov, bc, ids, subs...)
	deps.Viewer = monitored.New(prov)
	deps.Push = push

	app.api = trackingsapi.New(deps)
	app.push = push
	app.opts = trackAppOpts{
		httpAddr:  httpAddr,
		pushToken: cfg.ParcelBox.PushToken,
	}
	return app
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgattempts.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgattempts.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *trackApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *trackApp) Run() error {
	return runTrackApp(a.ctx, a.opts, a.api, a.push)
}
