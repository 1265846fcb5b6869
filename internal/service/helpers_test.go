package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fdbank/deposit-service/internal/auth"
	apperrors "github.com/fdbank/deposit-service/pkg/util"
)

var testKey = []byte(strings.Repeat("s", auth.MinSigningKeyBytes))

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(testKey, time.Hour)
	require.NoError(t, err)
	return tokens
}

func newTestHasher(t *testing.T) *auth.PasswordHasher {
	t.Helper()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return hasher
}

func requireDomainCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, code, domainErr.Code, "error: %v", err)
	return domainErr
}
