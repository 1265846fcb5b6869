package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// MinSigningKeyBytes is the HS256 key-size floor.
const MinSigningKeyBytes = 32

var errUnexpectedAlgorithm = errors.New("unexpected signing method")

// iat and exp carry millisecond fractions so sub-second windows survive encoding.
func init() {
	jwt.TimePrecision = time.Millisecond
}

// Claims describes the token payload: sub, role, iat and exp.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// FailureRecorder counts rejected tokens by failure label.
type FailureRecorder interface {
	RecordTokenFailure(reason string)
}

// TokenService issues and validates HS256 identity tokens.
//
// A TokenService is immutable after construction and safe for concurrent use.
type TokenService struct {
	key      []byte
	ttl      time.Duration
	leeway   time.Duration
	now      func() time.Time
	logger   *zap.Logger
	failures FailureRecorder
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLeeway tolerates clock skew when checking expiry.
func WithLeeway(leeway time.Duration) TokenOption {
	return func(s *TokenService) {
		s.leeway = leeway
	}
}

// WithLogger records token rejections.
func WithLogger(logger *zap.Logger) TokenOption {
	return func(s *TokenService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFailureRecorder counts token rejections.
func WithFailureRecorder(recorder FailureRecorder) TokenOption {
	return func(s *TokenService) {
		s.failures = recorder
	}
}

// DecodeSigningKey decodes a base64 secret and enforces the key-size floor.
func DecodeSigningKey(secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secret))
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	if len(key) < MinSigningKeyBytes {
		return nil, ErrWeakSigningKey
	}
	return key, nil
}

// NewTokenService builds a service around an already decoded signing key.
func NewTokenService(key []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(key) < MinSigningKeyBytes {
		return nil, ErrWeakSigningKey
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token expiry window must be positive")
	}

	s := &TokenService{
		key:    append([]byte(nil), key...),
		ttl:    ttl,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.leeway < 0 {
		return nil, errors.New("auth: leeway must not be negative")
	}
	return s, nil
}

// TTL returns the expiry window.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject carrying role. The caller has already
// checked credentials. The returned time is the encoded expiry.
func (s *TokenService) Issue(subject, role string) (string, time.Time, error) {
	now := s.now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Parse verifies the signature and expiry and returns the claims.
// Failures are *TokenError values.
func (s *TokenService) Parse(tokenStr string) (*Claims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return nil, newTokenError(ErrEmptyClaims, nil)
	}

	claims := &Claims{}
	if _, err := jwt.NewParser(s.parserOptions()...).ParseWithClaims(tokenStr, claims, s.keyFunc); err != nil {
		return nil, classifyParseError(tokenStr, err)
	}
	if claims.Subject == "" {
		return nil, newTokenError(ErrMalformedToken, errors.New("missing sub claim"))
	}
	return claims, nil
}

// Verify is Parse plus a diagnostic record of any failure.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims, err := s.Parse(tokenStr)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}
	return claims, nil
}

// ExtractSubject returns the sub claim of a valid token.
func (s *TokenService) ExtractSubject(tokenStr string) (string, error) {
	claims, err := s.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractRole returns the role claim of a valid token.
func (s *TokenService) ExtractRole(tokenStr string) (string, error) {
	claims, err := s.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	if claims.Role == "" {
		return "", newTokenError(ErrMalformedToken, errors.New("missing role claim"))
	}
	return claims.Role, nil
}

// Validate reports whether the token is usable. The failure kind is logged
// and counted, never returned.
func (s *TokenService) Validate(tokenStr string) bool {
	_, err := s.Verify(tokenStr)
	return err == nil
}

func (s *TokenService) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	}
	if s.leeway > 0 {
		opts = append(opts, jwt.WithLeeway(s.leeway))
	}
	return opts
}

func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("%w: %v", errUnexpectedAlgorithm, token.Header["alg"])
	}
	return s.key, nil
}

func (s *TokenService) recordFailure(err error) {
	label := FailureLabel(err)
	s.logger.Warn("token rejected", zap.String("reason", label), zap.Error(err))
	if s.failures != nil {
		s.failures.RecordTokenFailure(label)
	}
}

// classifyParseError maps parser errors onto failure kinds. Signature is
// verified before claims, so a tampered expired token reports the signature.
func classifyParseError(tokenStr string, err error) error {
	switch {
	case errors.Is(err, errUnexpectedAlgorithm), errors.Is(err, jwt.ErrTokenUnverifiable):
		return newTokenError(ErrUnsupportedFormat, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), onlySignatureUndecodable(tokenStr):
		return newTokenError(ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return newTokenError(ErrExpiredToken, err)
	default:
		return newTokenError(ErrMalformedToken, err)
	}
}

// onlySignatureUndecodable reports whether header and claims decode to JSON
// while the signature segment does not. Anything after the second dot counts
// as signature text.
func onlySignatureUndecodable(tokenStr string) bool {
	parts := strings.SplitN(tokenStr, ".", 3)
	if len(parts) != 3 {
		return false
	}
	encoding := base64.RawURLEncoding.Strict()
	for _, segment := range parts[:2] {
		decoded, err := encoding.DecodeString(segment)
		if err != nil || !json.Valid(decoded) {
			return false
		}
	}
	_, err := encoding.DecodeString(parts[2])
	return err != nil
}
