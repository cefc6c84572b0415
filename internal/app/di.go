// Package app wires the token-rest components together. Every component is
// built lazily on first access and cached, including its initialization error.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	authHTTP "github.com/allisson/token-rest/internal/auth/http"
	authService "github.com/allisson/token-rest/internal/auth/service"
	authUseCase "github.com/allisson/token-rest/internal/auth/usecase"
	"github.com/allisson/token-rest/internal/config"
	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	cryptoService "github.com/allisson/token-rest/internal/crypto/service"
	"github.com/allisson/token-rest/internal/database"
	"github.com/allisson/token-rest/internal/governance"
	"github.com/allisson/token-rest/internal/http"
	"github.com/allisson/token-rest/internal/metrics"
	vaultHTTP "github.com/allisson/token-rest/internal/vault/http"
	vaultService "github.com/allisson/token-rest/internal/vault/service"
	vaultUseCase "github.com/allisson/token-rest/internal/vault/usecase"
)

// Container holds the application components.
type Container struct {
	config *config.Config

	// ctx bounds background goroutines owned by container components, such as
	// the rate limiter janitors. Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Crypto
	masterKeyChain *cryptoDomain.MasterKeyChain
	aeadManager    cryptoService.AEADManager
	keyWrapper     cryptoService.KeyWrapper
	kmsService     *cryptoService.KMSService

	// Auth
	secretService      authService.SecretService
	tokenService       authService.TokenService
	clientRepository   authUseCase.ClientRepository
	tokenRepository    authUseCase.TokenRepository
	auditLogRepository authUseCase.AuditLogRepository
	clientUseCase      authUseCase.ClientUseCase
	tokenUseCase       authUseCase.TokenUseCase
	auditLogUseCase    authUseCase.AuditLogUseCase
	tokenHandler       *authHTTP.TokenHandler
	auditLogHandler    *authHTTP.AuditLogHandler

	// Vault
	vaultRepository     vaultUseCase.VaultRepository
	vaultKeyRepository  vaultUseCase.VaultKeyRepository
	vaultStore          vaultUseCase.TokenRepository
	keyring             *vaultService.Keyring
	policyEvaluator     governance.Evaluator
	gate                *governance.Gate
	vaultUseCase        vaultUseCase.VaultUseCase
	tokenizationUseCase vaultUseCase.TokenizationUseCase
	vaultHandler        *vaultHTTP.VaultHandler
	tokenizationHandler *vaultHTTP.TokenHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	mu                      sync.Mutex
	loggerInit              sync.Once
	dbInit                  sync.Once
	txManagerInit           sync.Once
	metricsProviderInit     sync.Once
	businessMetricsInit     sync.Once
	masterKeyChainInit      sync.Once
	aeadManagerInit         sync.Once
	keyWrapperInit          sync.Once
	kmsServiceInit          sync.Once
	secretServiceInit       sync.Once
	tokenServiceInit        sync.Once
	clientRepositoryInit    sync.Once
	tokenRepositoryInit     sync.Once
	auditLogRepositoryInit  sync.Once
	clientUseCaseInit       sync.Once
	tokenUseCaseInit        sync.Once
	auditLogUseCaseInit     sync.Once
	tokenHandlerInit        sync.Once
	auditLogHandlerInit     sync.Once
	vaultRepositoryInit     sync.Once
	vaultKeyRepositoryInit  sync.Once
	vaultStoreInit          sync.Once
	keyringInit             sync.Once
	policyEvaluatorInit     sync.Once
	gateInit                sync.Once
	vaultUseCaseInit        sync.Once
	tokenizationUseCaseInit sync.Once
	vaultHandlerInit        sync.Once
	tokenizationHandlerInit sync.Once
	httpServerInit          sync.Once
	metricsServerInit       sync.Once
	initErrors              map[string]error
}

// NewContainer creates a container for cfg.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the JSON logger configured with LOG_LEVEL.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when
// metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the API server with its router mounted.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown releases every initialized resource. Master key material is zeroed.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancel()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if c.masterKeyChain != nil {
		c.masterKeyChain.Close()
	}

	return errors.Join(shutdownErrors...)
}

func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	handlers, err := c.routerHandlers()
	if err != nil {
		return nil, err
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(c.ctx, c.config, handlers, metricsProvider)
	return server, nil
}

// routerHandlers collects everything the API router mounts.
func (c *Container) routerHandlers() (http.Handlers, error) {
	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return http.Handlers{}, fmt.Errorf("failed to get token use case for http server: %w", err)
	}
	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return http.Handlers{}, fmt.Errorf("failed to get audit log use case for http server: %w", err)
	}
	tokenHandler, err := c.TokenHandler()
	if err != nil {
		return http.Handlers{}, fmt.Errorf("failed to get token handler for http server: %w", err)
	}
	auditLogHandler, err := c.AuditLogHandler()
	if err != nil {
		return http.Handlers{}, fmt.Errorf("failed to get audit log handler for http server: %w", err)
	}
	vaultHandler, err := c.VaultHandler()
	if err != nil {
		return http.Handlers{}, fmt.Errorf("failed to get vault handler for http server: %w", err)
	}
	tokenizationHandler, err := c.TokenizationHandler()
	if err != nil {
		return http.Handlers{}, fmt.Errorf("failed to get tokenization handler for http server: %w", err)
	}

	return http.Handlers{
		TokenUseCase:    tokenUseCase,
		TokenService:    c.TokenService(),
		AuditLogUseCase: auditLogUseCase,
		IssueToken:      tokenHandler,
		AuditLogs:       auditLogHandler,
		Vaults:          vaultHandler,
		Tokens:          tokenizationHandler,
	}, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
