package app

import (
	"errors"
	"fmt"

	"github.com/allisson/token-rest/internal/config"
	"github.com/allisson/token-rest/internal/database"
	"github.com/allisson/token-rest/internal/governance"
	vaultHTTP "github.com/allisson/token-rest/internal/vault/http"
	vaultRepository "github.com/allisson/token-rest/internal/vault/repository"
	vaultMySQL "github.com/allisson/token-rest/internal/vault/repository/mysql"
	vaultService "github.com/allisson/token-rest/internal/vault/service"
	vaultUseCase "github.com/allisson/token-rest/internal/vault/usecase"
)

// VaultRepository returns the vault repository for the configured driver.
func (c *Container) VaultRepository() (vaultUseCase.VaultRepository, error) {
	var err error
	c.vaultRepositoryInit.Do(func() {
		c.vaultRepository, err = c.initVaultRepository()
		if err != nil {
			c.initErrors["vaultRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultRepository"]; exists {
		return nil, storedErr
	}
	return c.vaultRepository, nil
}

// VaultKeyRepository returns the vault key repository for the configured driver.
func (c *Container) VaultKeyRepository() (vaultUseCase.VaultKeyRepository, error) {
	var err error
	c.vaultKeyRepositoryInit.Do(func() {
		c.vaultKeyRepository, err = c.initVaultKeyRepository()
		if err != nil {
			c.initErrors["vaultKeyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultKeyRepository"]; exists {
		return nil, storedErr
	}
	return c.vaultKeyRepository, nil
}

// VaultStore returns the token record store for the configured driver.
func (c *Container) VaultStore() (vaultUseCase.TokenRepository, error) {
	var err error
	c.vaultStoreInit.Do(func() {
		c.vaultStore, err = c.initVaultStore()
		if err != nil {
			c.initErrors["vaultStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultStore"]; exists {
		return nil, storedErr
	}
	return c.vaultStore, nil
}

// Keyring returns the vault keyring. It is both the crypto provider and the
// value digester of the tokenization engine.
func (c *Container) Keyring() (*vaultService.Keyring, error) {
	var err error
	c.keyringInit.Do(func() {
		c.keyring, err = c.initKeyring()
		if err != nil {
			c.initErrors["keyring"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyring"]; exists {
		return nil, storedErr
	}
	return c.keyring, nil
}

// PolicyEvaluator returns the detokenize policy evaluator selected by
// GOVERNANCE_MODE.
func (c *Container) PolicyEvaluator() (governance.Evaluator, error) {
	var err error
	c.policyEvaluatorInit.Do(func() {
		c.policyEvaluator, err = c.initPolicyEvaluator()
		if err != nil {
			c.initErrors["policyEvaluator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["policyEvaluator"]; exists {
		return nil, storedErr
	}
	return c.policyEvaluator, nil
}

// Gate returns the governance gate wrapping the policy evaluator.
func (c *Container) Gate() (*governance.Gate, error) {
	var err error
	c.gateInit.Do(func() {
		c.gate, err = c.initGate()
		if err != nil {
			c.initErrors["gate"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["gate"]; exists {
		return nil, storedErr
	}
	return c.gate, nil
}

// VaultUseCase returns the vault management use case.
func (c *Container) VaultUseCase() (vaultUseCase.VaultUseCase, error) {
	var err error
	c.vaultUseCaseInit.Do(func() {
		c.vaultUseCase, err = c.initVaultUseCase()
		if err != nil {
			c.initErrors["vaultUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultUseCase"]; exists {
		return nil, storedErr
	}
	return c.vaultUseCase, nil
}

// TokenizationUseCase returns the tokenization engine.
func (c *Container) TokenizationUseCase() (vaultUseCase.TokenizationUseCase, error) {
	var err error
	c.tokenizationUseCaseInit.Do(func() {
		c.tokenizationUseCase, err = c.initTokenizationUseCase()
		if err != nil {
			c.initErrors["tokenizationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenizationUseCase"]; exists {
		return nil, storedErr
	}
	return c.tokenizationUseCase, nil
}

// VaultHandler returns the HTTP handler for vault management.
func (c *Container) VaultHandler() (*vaultHTTP.VaultHandler, error) {
	var err error
	c.vaultHandlerInit.Do(func() {
		c.vaultHandler, err = c.initVaultHandler()
		if err != nil {
			c.initErrors["vaultHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultHandler"]; exists {
		return nil, storedErr
	}
	return c.vaultHandler, nil
}

// TokenizationHandler returns the HTTP handler for tokenize, detokenize,
// delete and query.
func (c *Container) TokenizationHandler() (*vaultHTTP.TokenHandler, error) {
	var err error
	c.tokenizationHandlerInit.Do(func() {
		c.tokenizationHandler, err = c.initTokenizationHandler()
		if err != nil {
			c.initErrors["tokenizationHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenizationHandler"]; exists {
		return nil, storedErr
	}
	return c.tokenizationHandler, nil
}

func (c *Container) initVaultRepository() (vaultUseCase.VaultRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for vault repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return vaultRepository.NewPostgreSQLVaultRepository(db), nil
	case database.DriverMySQL:
		return vaultMySQL.NewMySQLVaultRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initVaultKeyRepository() (vaultUseCase.VaultKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for vault key repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return vaultRepository.NewPostgreSQLVaultKeyRepository(db), nil
	case database.DriverMySQL:
		return vaultMySQL.NewMySQLVaultKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initVaultStore() (vaultUseCase.TokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for vault store: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return vaultRepository.NewPostgreSQLTokenRepository(db), nil
	case database.DriverMySQL:
		return vaultMySQL.NewMySQLTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initKeyring() (*vaultService.Keyring, error) {
	chain, err := c.MasterKeyChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key chain for keyring: %w", err)
	}

	vaultKeyRepository, err := c.VaultKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault key repository for keyring: %w", err)
	}

	return vaultService.NewKeyring(chain, vaultKeyRepository, c.KeyWrapper(), c.AEADManager()), nil
}

func (c *Container) initPolicyEvaluator() (governance.Evaluator, error) {
	switch c.config.GovernanceMode {
	case config.GovernanceModeClientPolicy:
		clientRepository, err := c.ClientRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get client repository for policy evaluator: %w", err)
		}
		return governance.NewClientPolicyEvaluator(clientRepository), nil
	case config.GovernanceModeRules:
		if c.config.GovernanceRulesFile == "" {
			return nil, errors.New("GOVERNANCE_RULES_FILE is required when GOVERNANCE_MODE=rules")
		}
		rules, err := governance.LoadRuleSet(c.config.GovernanceRulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load governance rules: %w", err)
		}
		return governance.NewRuleEvaluator(rules), nil
	case config.GovernanceModeRemote:
		if c.config.GovernanceRemoteURL == "" {
			return nil, errors.New("GOVERNANCE_REMOTE_URL is required when GOVERNANCE_MODE=remote")
		}
		return governance.NewRemoteEvaluator(
			c.config.GovernanceRemoteURL,
			c.config.GovernanceTimeout,
			c.config.GovernanceRemoteRetryMax,
			c.Logger(),
		), nil
	default:
		return nil, fmt.Errorf("unsupported governance mode: %s", c.config.GovernanceMode)
	}
}

func (c *Container) initGate() (*governance.Gate, error) {
	evaluator, err := c.PolicyEvaluator()
	if err != nil {
		return nil, err
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for gate: %w", err)
	}

	return governance.NewGate(evaluator, c.config.GovernanceTimeout, c.Logger(), businessMetrics), nil
}

func (c *Container) initVaultUseCase() (vaultUseCase.VaultUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for vault use case: %w", err)
	}
	vaultRepo, err := c.VaultRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault repository for vault use case: %w", err)
	}
	vaultKeyRepo, err := c.VaultKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault key repository for vault use case: %w", err)
	}
	store, err := c.VaultStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault store for vault use case: %w", err)
	}
	keyring, err := c.Keyring()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyring for vault use case: %w", err)
	}
	chain, err := c.MasterKeyChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key chain for vault use case: %w", err)
	}

	useCase := vaultUseCase.NewVaultUseCase(
		txManager,
		vaultRepo,
		vaultKeyRepo,
		store,
		keyring,
		c.KeyWrapper(),
		chain,
		c.Logger(),
	)
	if !c.config.MetricsEnabled {
		return useCase, nil
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for vault use case: %w", err)
	}
	return vaultUseCase.NewVaultUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initTokenizationUseCase() (vaultUseCase.TokenizationUseCase, error) {
	vaultRepo, err := c.VaultRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault repository for tokenization use case: %w", err)
	}
	store, err := c.VaultStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault store for tokenization use case: %w", err)
	}
	keyring, err := c.Keyring()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyring for tokenization use case: %w", err)
	}
	gate, err := c.Gate()
	if err != nil {
		return nil, fmt.Errorf("failed to get gate for tokenization use case: %w", err)
	}
	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for tokenization use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for tokenization use case: %w", err)
	}

	useCase := vaultUseCase.NewTokenizationUseCase(
		vaultRepo,
		store,
		keyring,
		keyring,
		gate,
		auditLogUseCase,
		businessMetrics,
		c.Logger(),
		vaultUseCase.TokenizationConfig{MaxAttempts: c.config.TokenizeMaxAttempts},
	)
	if !c.config.MetricsEnabled {
		return useCase, nil
	}
	return vaultUseCase.NewTokenizationUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initVaultHandler() (*vaultHTTP.VaultHandler, error) {
	useCase, err := c.VaultUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault use case for vault handler: %w", err)
	}
	return vaultHTTP.NewVaultHandler(useCase, c.Logger()), nil
}

func (c *Container) initTokenizationHandler() (*vaultHTTP.TokenHandler, error) {
	useCase, err := c.TokenizationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenization use case for tokenization handler: %w", err)
	}
	return vaultHTTP.NewTokenHandler(useCase, c.Logger()), nil
}
