package app

import (
	"fmt"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	cryptoService "github.com/allisson/token-rest/internal/crypto/service"
)

// MasterKeyChain returns the master key chain loaded from MASTER_KEYS and
// ACTIVE_MASTER_KEY_ID, decrypted through KMS_KEY_URI when it is set.
func (c *Container) MasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	var err error
	c.masterKeyChainInit.Do(func() {
		c.masterKeyChain, err = c.initMasterKeyChain()
		if err != nil {
			c.initErrors["masterKeyChain"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKeyChain"]; exists {
		return nil, storedErr
	}
	return c.masterKeyChain, nil
}

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// KeyWrapper returns the service that generates and wraps vault keys.
func (c *Container) KeyWrapper() cryptoService.KeyWrapper {
	c.keyWrapperInit.Do(func() {
		c.keyWrapper = cryptoService.NewKeyWrapper(c.AEADManager())
	})
	return c.keyWrapper
}

// KMSService returns the KMS service.
func (c *Container) KMSService() *cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

func (c *Container) initMasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	chain, err := cryptoDomain.LoadMasterKeyChain(
		c.ctx,
		c.config.MasterKeys,
		c.config.ActiveMasterKeyID,
		c.config.KMSKeyURI,
		c.KMSService(),
		c.Logger(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key chain: %w", err)
	}
	return chain, nil
}
