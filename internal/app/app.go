package app

import (
	"fmt"
	"io"
	"os"

	"github.com/bobmcallan/vire-fetch/internal/common"
	"github.com/bobmcallan/vire-fetch/internal/config"
	"github.com/bobmcallan/vire-fetch/internal/fetch"
	"github.com/bobmcallan/vire-fetch/internal/handlers"
	"github.com/bobmcallan/vire-fetch/internal/mcp"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	// Fetch pipeline
	Policy    *fetch.Policy
	AccessLog *fetch.AccessLogger
	Pipeline  *fetch.Pipeline

	// HTTP handlers
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	MCPHandler     *mcp.Handler

	accessOut io.Writer
}

// Option customises App construction.
type Option func(*App)

// WithAccessLogWriter sends the access log to w instead of stderr.
func WithAccessLogWriter(w io.Writer) Option {
	return func(a *App) { a.accessOut = w }
}

// New initializes the application with all dependencies. The config must
// already be validated and carry a secret.
func New(cfg *config.Config, logger *common.Logger, opts ...Option) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		accessOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth secret is not set")
	}

	if err := a.initPipeline(); err != nil {
		return nil, err
	}
	a.initHandlers()

	logger.Info().
		Str("allowed_url_pattern", a.Policy.Pattern()).
		Strs("allowed_methods", a.Policy.AllowedMethods()).
		Int("timeout_seconds", a.Policy.TimeoutSeconds()).
		Int("max_response_size_kb", a.Policy.MaxResponseKB()).
		Msg("application initialization complete")

	return a, nil
}

// initPipeline compiles the fetch policy and wires the pipeline stages.
func (a *App) initPipeline() error {
	policy, err := fetch.NewPolicy(a.Config.Fetch)
	if err != nil {
		return fmt.Errorf("invalid fetch policy: %w", err)
	}
	a.Policy = policy
	a.AccessLog = fetch.NewAccessLogger(a.accessOut, a.Logger)
	executor := fetch.NewExecutor(policy, a.AccessLog, a.Logger)
	a.Pipeline = fetch.NewPipeline(policy, executor, a.AccessLog)
	return nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.MCPHandler = mcp.NewHandler(a.Config, a.Pipeline, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	return nil
}
