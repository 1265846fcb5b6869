package auth

import (
	"github.com/fdbank/deposit-service/internal/config"
)

// NewTokenServiceFromConfig decodes the configured secret and applies the
// configured expiry window and leeway.
func NewTokenServiceFromConfig(cfg config.AuthConfig, opts ...TokenOption) (*TokenService, error) {
	key, err := DecodeSigningKey(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	opts = append([]TokenOption{WithLeeway(cfg.Leeway())}, opts...)
	return NewTokenService(key, cfg.Expiration(), opts...)
}
