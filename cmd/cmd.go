package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vescollector/api"
	"vescollector/database"
	"vescollector/internal/auth"
	"vescollector/internal/chaos"
	"vescollector/internal/config"
	"vescollector/internal/dispatcher"
	"vescollector/internal/handler"
	"vescollector/internal/logger"
	"vescollector/internal/models"
	"vescollector/internal/pending"
	"vescollector/internal/schema"
	"vescollector/internal/server"
	prom "vescollector/prometheus"

	"github.com/SOLUCIONESSYCOM/scribe"
	"github.com/gin-gonic/gin"
)

const (
	CollectorServer = "collector"
	AdminServer     = "admin"

	shutdownTimeout = 10 * time.Second
)

// ErrServersExited is returned by Serve when every server stopped without a
// shutdown signal.
var ErrServersExited = errors.New("servers exited unexpectedly")

// Options carries the command line overrides.
type Options struct {
	ConfigFile string
	Verbose    bool
	APIVersion string
	Console    io.Writer
}

// Collector wires the event listener, its stores and its servers together.
type Collector struct {
	Config  *models.CollectorConfig
	Logger  *scribe.Scribe
	Manager *server.Manager
	Store   pending.Store
	Journal *database.BatchManager
	Metrics *prom.Metrics
	Routes  server.Routes

	closeStore func() error
	cancel     context.CancelFunc
}

// New builds a collector from a loaded configuration. Nothing listens until
// Start is called.
func New(ctx context.Context, loaded *config.Loaded, console io.Writer) (*Collector, error) {
	cfg := loaded.CollectorConfig
	c := cfg.Collector

	log, err := logger.GetLoggerContext(models.LogDescriptor{
		Name:    c.Name,
		Version: c.Version,
		Path:    c.LogFile,
		File:    true,
		Logger:  c.Verbose,
		Verbose: c.Verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating logger: %w", err)
	}

	for _, warning := range loaded.Warnings {
		log.Warn().Msg(warning)
	}

	routes := server.Routes{
		EventListener: config.EventListenerURL(c),
		Throttle:      config.ThrottleURL(c),
		TestControl:   config.TestControlURL(c),
	}
	log.Info().
		Str("event_listener", routes.EventListener).
		Str("throttle", routes.Throttle).
		Str("test_control", routes.TestControl).
		Int("port", c.Port).
		Msg("Collector routes")

	schemas, err := schema.Load(schema.Paths{
		Base:        c.Schema.BaseFile,
		Event:       c.Schema.EventFile,
		Throttle:    c.Schema.ThrottleFile,
		TestControl: c.Schema.TestControlFile,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("error loading schemas: %w", err)
	}

	store, closeStore, err := pending.Open(ctx, cfg.Pending)
	if err != nil {
		return nil, fmt.Errorf("error opening pending command store: %w", err)
	}

	collector := &Collector{
		Config:     cfg,
		Logger:     log,
		Store:      store,
		Metrics:    prom.NewMetrics(),
		Routes:     routes,
		closeStore: closeStore,
	}
	collector.Metrics.TrackPending(pending.Probe(store, 2*time.Second))

	journal, err := database.Open(cfg.Journal, log)
	switch {
	case errors.Is(err, database.ErrJournalDisabled):
		log.Info().Msg("Event journal disabled")
	case err != nil:
		_ = closeStore()
		return nil, fmt.Errorf("error opening event journal: %w", err)
	default:
		collector.Journal = journal
	}

	if err := collector.buildServers(schemas, handler.NewConsole(console)); err != nil {
		_ = collector.close()
		return nil, err
	}

	return collector, nil
}

func (col *Collector) buildServers(schemas schema.Set, console *handler.Console) error {
	c := col.Config.Collector

	if c.Verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var (
		engine   *chaos.Engine
		journal  handler.Journal
		authUser = auth.New(c.Username, c.Password)
	)
	if c.ChaosInjection != nil {
		engine = chaos.NewEngine()
		col.Logger.Warn().Msg("Chaos injection enabled on event listener routes")
	}
	if col.Journal != nil {
		journal = col.Journal
	}

	events := &handler.EventListener{
		Route:        col.Routes.EventListener,
		Schema:       schemas.Event,
		Auth:         authUser,
		Store:        col.Store,
		Logger:       col.Logger,
		Console:      console,
		MaxBodyBytes: c.MaxBodyBytes,
		Journal:      journal,
		Metrics:      col.Metrics,
		Chaos:        engine,
		ChaosCfg:     c.ChaosInjection,
	}
	throttle := &handler.EventListener{
		Route:        col.Routes.Throttle,
		Schema:       schemas.Throttle,
		Auth:         authUser,
		Store:        col.Store,
		Logger:       col.Logger,
		Console:      console,
		MaxBodyBytes: c.MaxBodyBytes,
		Journal:      journal,
		Metrics:      col.Metrics,
		Chaos:        engine,
		ChaosCfg:     c.ChaosInjection,
	}
	testControl := &handler.TestControl{
		Route:        col.Routes.TestControl,
		Schema:       schemas.TestControl,
		Store:        col.Store,
		Logger:       col.Logger,
		Console:      console,
		MaxBodyBytes: c.MaxBodyBytes,
		Metrics:      col.Metrics,
	}

	d := dispatcher.New(col.Logger)
	d.OnNotFound = func(*http.Request) { col.Metrics.NotFound.Inc() }
	server.RegisterCollector(d, col.Routes, events, throttle, testControl)

	timeouts := server.DefaultTimeouts()
	timeouts.Read = time.Duration(c.ReadTimeoutMs) * time.Millisecond
	timeouts.Write = time.Duration(c.WriteTimeoutMs) * time.Millisecond

	col.Manager = server.NewManager(col.Logger)
	if err := col.Manager.CreateServer(CollectorServer, c.Port, server.NewRouter(d, c.Verbose), timeouts); err != nil {
		return err
	}

	admin := col.Config.Admin
	if admin.Port == 0 {
		col.Logger.Info().Msg("Admin API disabled")
		return nil
	}

	var (
		reader api.EventReader
		stats  api.StatsSource
	)
	if col.Journal != nil {
		reader = col.Journal
		stats = col.Journal
	}

	ctx, cancel := context.WithCancel(context.Background())
	col.cancel = cancel

	limiter := api.NewLimiterStore(admin.RateRPS, admin.RateBurst)
	limiter.StartJanitor(ctx)

	apiHandler := api.NewAPIHandler(c.Name, c.Version, col.Store, reader, stats, col.Metrics, col.Logger)
	router := api.NewRouter(apiHandler, api.RouteOptions{RequestLog: c.Verbose, Limiter: limiter})

	return col.Manager.CreateServer(AdminServer, admin.Port, router, server.DefaultTimeouts())
}

// Start binds the servers.
func (col *Collector) Start() error {
	if err := col.Manager.Start(); err != nil {
		return err
	}
	col.Logger.Info().Msg("All servers started successfully")
	return nil
}

// Stop shuts the servers down and then flushes the journal and closes the
// pending command store.
func (col *Collector) Stop(ctx context.Context) error {
	col.Logger.Info().Msg("Shutting down servers...")

	err := col.Manager.Stop(ctx)
	if closeErr := col.close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}

	col.Logger.Info().Msg("Servers stopped")
	return err
}

func (col *Collector) close() error {
	if col.cancel != nil {
		col.cancel()
	}

	var errs []error
	if col.Journal != nil {
		if err := col.Journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing journal: %w", err))
		}
	}
	if col.closeStore != nil {
		if err := col.closeStore(); err != nil {
			errs = append(errs, fmt.Errorf("error closing pending store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Load reads the configuration file and applies the command line overrides.
func Load(opts Options) (*config.Loaded, error) {
	file := opts.ConfigFile
	if file == "" {
		file = config.GetConfigFile()
	}

	loaded, err := config.LoadConfig(file)
	if err != nil {
		return nil, err
	}

	if opts.Verbose {
		loaded.Collector.Verbose = true
	}
	if opts.APIVersion != "" {
		loaded.Collector.APIVersion = opts.APIVersion
	}

	return loaded, nil
}

// Run starts the collector and blocks until SIGINT or SIGTERM, or until its
// servers exit on their own.
func Run(opts Options) error {
	loaded, err := Load(opts)
	if err != nil {
		return err
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	ctx := context.Background()
	collector, err := New(ctx, loaded, console)
	if err != nil {
		return err
	}

	if err := collector.Start(); err != nil {
		_ = collector.close()
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return collector.Serve(quit)
}

// Serve blocks until a signal arrives on quit or every server has exited,
// then stops the collector.
func (col *Collector) Serve(quit <-chan os.Signal) error {
	exited := make(chan struct{})
	go func() {
		col.Manager.Wait()
		close(exited)
	}()

	var runErr error
	select {
	case sig := <-quit:
		col.Logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case <-exited:
		runErr = ErrServersExited
		col.Logger.Error().Msg("All servers exited, shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, col.Stop(ctx))
}
