// Package container provides dependency injection for the fintrack application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjacquet/fintrack/internal/ai"
	"fjacquet/fintrack/internal/api"
	"fjacquet/fintrack/internal/backup"
	"fjacquet/fintrack/internal/cache"
	"fjacquet/fintrack/internal/categorizer"
	"fjacquet/fintrack/internal/config"
	"fjacquet/fintrack/internal/factory"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/ocr"
	"fjacquet/fintrack/internal/pipeline"
	"fjacquet/fintrack/internal/ratelimit"
	"fjacquet/fintrack/internal/recurring"
	"fjacquet/fintrack/internal/rpc"
	"fjacquet/fintrack/internal/store"
	"fjacquet/fintrack/internal/store/gormstore"
	"fjacquet/fintrack/internal/transactions"
)

// Function names of the serverless endpoints.
const (
	ChatFunction      = "ai-chat"
	OCRFunction       = "ocr-extract"
	RateLimitFunction = "check-rate-limit"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation - all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger logging.Logger
	config *config.Config

	dataStore     store.DataStore
	categoryStore *store.CategoryStore
	cache         *cache.Cache
	categorizer   *categorizer.Categorizer
	transactions  *transactions.Service
	sessions      *pipeline.Sessions
	importer      *pipeline.Importer
	recurring     *recurring.Service
	backup        *backup.Service
	limiter       *ratelimit.Limiter
	assistant     *ai.Assistant
	scanner       *ocr.Scanner

	closers []func() error
}

// Option overrides a dependency, mainly for tests.
type Option func(*options)

type options struct {
	logger    logging.Logger
	dataStore store.DataStore
	chat      ai.Client
	extractor ocr.Extractor
	notifier  pipeline.Notifier
}

// WithLogger replaces the logger built from the config.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDataStore replaces the configured data store.
func WithDataStore(ds store.DataStore) Option {
	return func(o *options) { o.dataStore = ds }
}

// WithChatClient replaces the configured AI provider.
func WithChatClient(c ai.Client) Option {
	return func(o *options) { o.chat = c }
}

// WithExtractor replaces the configured OCR provider.
func WithExtractor(e ocr.Extractor) Option {
	return func(o *options) { o.extractor = e }
}

// WithNotifier receives import notifications instead of the log.
func WithNotifier(n pipeline.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// NewContainer creates and wires all application dependencies.
// This is the main entry point for dependency injection in the application.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Create logger first as it's needed by other components
	logger := o.logger
	if logger == nil {
		logger = logging.NewLogrusAdapterFromLogger(config.ConfigureLoggingFromConfig(cfg))
	}
	c := &Container{logger: logger, config: cfg}

	ds, err := c.openStore(o.dataStore)
	if err != nil {
		return nil, err
	}
	c.dataStore = ds

	newFunctions := func(baseURL string) *rpc.Client {
		return rpc.NewClient(baseURL, cfg.Functions.APIKey, time.Duration(cfg.AI.TimeoutSeconds)*time.Second)
	}

	chat, err := c.chatClient(ctx, o.chat, newFunctions)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	var suggester categorizer.AIClient
	if chat != nil {
		suggester = ai.NewCategorySuggester(chat)
		logger.Info("AI category suggestions enabled", logging.F("provider", cfg.AI.Provider))
	} else {
		logger.Info("AI category suggestions disabled")
	}

	c.cache = cache.New(cache.Options{
		TTL:    cfg.Cache.QueryTTL,
		GCTime: cfg.Cache.GCTime,
		Logger: logger,
	})
	if cfg.RateLimit.FunctionURL != "" {
		checker := ratelimit.FunctionChecker{Client: newFunctions(cfg.RateLimit.FunctionURL), Function: RateLimitFunction}
		c.limiter = ratelimit.New(checker, logger)
	}
	c.categoryStore = store.NewCategoryStore(cfg.Import.CategoriesFile, logger)
	c.categorizer = categorizer.NewCategorizer(ds, c.categoryStore, suggester, logger).
		CacheRules(c.cache, cfg.Cache.StaticTTL).
		LimitSuggestions(c.limiterOrNil(), cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowMinutes)
	c.transactions = transactions.NewService(ds, c.cache, logger)
	c.sessions = pipeline.NewSessions(cfg.Import.SessionTTL)
	c.importer = pipeline.NewImporter(c.categorizer, c.transactions, o.notifier, logger,
		pipeline.WithParseOptions(factory.Options{PreambleScanLines: cfg.Import.PreambleScanLines}),
		pipeline.WithMaxFileBytes(int(cfg.Import.MaxFileBytes)),
		pipeline.WithSessions(c.sessions))
	c.recurring = recurring.NewService(ds, logger)
	c.backup = backup.NewService(ds, logger)

	if chat != nil {
		c.assistant = ai.NewAssistant(chat, ds, ai.AssistantOptions{
			Limiter:       c.limiterOrNil(),
			MaxRequests:   cfg.RateLimit.MaxRequests,
			WindowMinutes: cfg.RateLimit.WindowMinutes,
			Provider:      cfg.AI.Provider,
		}, logger)
	}

	extractor, err := c.extractor(ctx, o.extractor, newFunctions)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	if extractor != nil {
		c.scanner = ocr.NewScanner(extractor, logger)
	}

	logger.Info("Container initialized successfully",
		logging.F("ai_enabled", chat != nil),
		logging.F("ocr_enabled", extractor != nil),
		logging.F("rate_limited", c.limiter != nil))
	return c, nil
}

func (c *Container) openStore(override store.DataStore) (store.DataStore, error) {
	if override != nil {
		return override, nil
	}
	if c.config.Database.DSN == "" {
		c.logger.Warn("No database configured, data is kept in memory only")
		return store.NewMemoryStore(c.logger), nil
	}

	gs, err := gormstore.Open(c.config.Database.DSN, c.logger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, gs.Close)
	if c.config.Database.AutoMigrate {
		if err := gs.AutoMigrate(); err != nil {
			_ = gs.Close()
			return nil, err
		}
	}
	return gs, nil
}

func (c *Container) chatClient(ctx context.Context, override ai.Client, functions func(string) *rpc.Client) (ai.Client, error) {
	cfg := c.config.AI
	var base ai.Client
	switch {
	case override != nil:
		base = override
	case !cfg.Enabled:
		return nil, nil
	case cfg.Provider == "function":
		base = ai.NewFunctionClient(functions(cfg.FunctionURL), ChatFunction)
	default:
		g, err := ai.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		c.closers = append(c.closers, g.Close)
		base = g
	}
	return ai.NewRetryingClient(base, cfg.MaxRetries, cfg.InitialBackoff, c.logger), nil
}

func (c *Container) extractor(ctx context.Context, override ocr.Extractor, functions func(string) *rpc.Client) (ocr.Extractor, error) {
	cfg := c.config.OCR
	switch {
	case override != nil:
		return override, nil
	case cfg.UseGemini:
		g, err := ocr.NewGeminiExtractor(ctx, c.config.AI.APIKey, c.config.AI.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini OCR client: %w", err)
		}
		c.closers = append(c.closers, g.Close)
		return g, nil
	case cfg.FunctionURL != "":
		return ocr.NewFunctionClient(functions(cfg.FunctionURL), OCRFunction), nil
	}
	return nil, nil
}

// limiterOrNil keeps a nil *Limiter from becoming a non-nil interface.
func (c *Container) limiterOrNil() ai.Limiter {
	if c.limiter == nil {
		return nil
	}
	return c.limiter
}

// NewServer builds the HTTP API over the container's services.
func (c *Container) NewServer() *api.Server {
	return api.NewServer(api.Deps{
		Importer:     c.importer,
		Sessions:     c.sessions,
		Transactions: c.transactions,
		Categorizer:  c.categorizer,
		Recurring:    c.recurring,
		Backup:       c.backup,
		Assistant:    c.assistant,
		Scanner:      c.scanner,
		Logger:       c.logger,
	}, api.Options{
		AllowedOrigins: c.config.Server.AllowedOrigins,
		MaxUploadBytes: c.config.Import.MaxFileBytes,
	})
}

// RunMaintenance sweeps expired import previews and idle cache entries every
// interval until ctx is done.
func (c *Container) RunMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sessions := c.sessions.Sweep(now)
			entries := c.cache.Collect(now)
			if sessions+entries > 0 {
				c.logger.Debug("Maintenance sweep",
					logging.F("sessions", sessions),
					logging.F("cache_entries", entries))
			}
		}
	}
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetDataStore returns the hosted store, or the in-memory one when no
// database is configured.
func (c *Container) GetDataStore() store.DataStore {
	return c.dataStore
}

// GetCategorizer returns the container's categorizer instance.
func (c *Container) GetCategorizer() *categorizer.Categorizer {
	return c.categorizer
}

// GetCategoryStore returns the fallback bucket loader.
func (c *Container) GetCategoryStore() *store.CategoryStore {
	return c.categoryStore
}

// GetTransactions returns the cached transactions service.
func (c *Container) GetTransactions() *transactions.Service {
	return c.transactions
}

// GetImporter returns the import pipeline.
func (c *Container) GetImporter() *pipeline.Importer {
	return c.importer
}

// GetRecurring returns the recurring schedule service.
func (c *Container) GetRecurring() *recurring.Service {
	return c.recurring
}

// GetBackup returns the backup service.
func (c *Container) GetBackup() *backup.Service {
	return c.backup
}

// GetAssistant returns the AI assistant. Returns nil if AI is not enabled.
func (c *Container) GetAssistant() *ai.Assistant {
	return c.assistant
}

// GetScanner returns the receipt scanner. Returns nil if OCR is not configured.
func (c *Container) GetScanner() *ocr.Scanner {
	return c.scanner
}

// Close releases provider clients and the database pool.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	c.logger.Info("Container closed")
	return errors.Join(errs...)
}
