package providers

import (
	"github.com/samber/do/v2"

	"github.com/bitcoinworld/arcade-server/internal/auth"
	"github.com/bitcoinworld/arcade-server/internal/config"
	"github.com/bitcoinworld/arcade-server/internal/logger"
)

// ProvideTokenService loads or generates the signing key and provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	keyHex, err := auth.LoadOrGenerateKey(cfg.Auth.TokenKeyPath)
	if err != nil {
		return nil, err
	}

	log.Info("Authentication key loaded",
		"key_path", cfg.Auth.TokenKeyPath,
		"access_token_duration", cfg.Auth.AccessTokenDuration,
		"admin_wallets", len(cfg.Auth.AdminWallets),
	)

	return auth.NewTokenService(keyHex, cfg.Auth.AccessTokenDuration)
}
