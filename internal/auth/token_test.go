package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	testKey  = []byte(strings.Repeat("k", 32))
	otherKey = []byte(strings.Repeat("z", 32))
	t0       = time.Unix(1_700_000_000, 0)
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Set(offset time.Duration) { c.now = t0.Add(offset) }

type recordingFailures struct {
	mu      sync.Mutex
	reasons []string
}

func (r *recordingFailures) RecordTokenFailure(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func newTestTokenService(t *testing.T, ttl time.Duration, opts ...TokenOption) (*TokenService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t0}
	svc, err := NewTokenService(testKey, ttl, append([]TokenOption{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return svc, clock
}

func signRaw(t *testing.T, method jwt.SigningMethod, claims jwt.Claims, key interface{}) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

// flipSignatureBit flips one bit of the encoded signature text, so the result
// may fall outside the base64url alphabet or only touch padding bits.
func flipSignatureBit(t *testing.T, token string, char, bit int) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	require.Less(t, char, len(sig))
	sig[char] ^= 1 << bit
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc, _ := newTestTokenService(t, time.Hour)

	pairs := []struct{ subject, role string }{
		{"alice", "CUSTOMER"},
		{"bob", "BANK_MANAGER"},
		{"zoë.o'neil@example.com", "ROLE_AUDITOR"},
	}
	for _, p := range pairs {
		t.Run(p.subject, func(t *testing.T) {
			token, _, err := svc.Issue(p.subject, p.role)
			require.NoError(t, err)

			subject, err := svc.ExtractSubject(token)
			require.NoError(t, err)
			assert.Equal(t, p.subject, subject)

			role, err := svc.ExtractRole(token)
			require.NoError(t, err)
			assert.Equal(t, p.role, role)

			assert.True(t, svc.Validate(token))
		})
	}
}

func TestTokenService_IssueEncodesStandardClaims(t *testing.T) {
	svc, _ := newTestTokenService(t, 1000*time.Millisecond)

	token, expiresAt, err := svc.Issue("alice", "CUSTOMER")
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(t0.Add(time.Second)))

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	var header map[string]any
	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(headerJSON, &header))
	assert.Equal(t, "HS256", header["alg"])

	var payload map[string]any
	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payloadJSON, &payload))
	assert.Equal(t, "alice", payload["sub"])
	assert.Equal(t, "CUSTOMER", payload["role"])
	assert.EqualValues(t, t0.Unix(), payload["iat"])
	assert.EqualValues(t, t0.Unix()+1, payload["exp"])
	assert.Len(t, payload, 4)
}

func TestTokenService_AliceScenario(t *testing.T) {
	svc, clock := newTestTokenService(t, 1000*time.Millisecond)

	token, _, err := svc.Issue("alice", "CUSTOMER")
	require.NoError(t, err)

	clock.Set(500 * time.Millisecond)
	assert.True(t, svc.Validate(token))
	role, err := svc.ExtractRole(token)
	require.NoError(t, err)
	assert.Equal(t, "CUSTOMER", role)

	clock.Set(1500 * time.Millisecond)
	assert.False(t, svc.Validate(token))
	_, err = svc.ExtractSubject(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_AliceScenarioOffSecond(t *testing.T) {
	svc, clock := newTestTokenService(t, 1000*time.Millisecond)
	clock.Set(700 * time.Millisecond)

	token, expiresAt, err := svc.Issue("alice", "CUSTOMER")
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(t0.Add(1700*time.Millisecond)), "expiry is issuance plus the full window")

	clock.Set(1200 * time.Millisecond)
	assert.True(t, svc.Validate(token))

	clock.Set(2200 * time.Millisecond)
	_, err = svc.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenService_ExpiryBoundaryOffSecond(t *testing.T) {
	const (
		issuedAt = 700 * time.Millisecond
		window   = 1000 * time.Millisecond
		epsilon  = 10 * time.Millisecond
	)
	svc, clock := newTestTokenService(t, window)
	clock.Set(issuedAt)

	token, _, err := svc.Issue("carol", "CUSTOMER")
	require.NoError(t, err)

	clock.Set(issuedAt + window - epsilon)
	assert.True(t, svc.Validate(token), "just before expiry")

	clock.Set(issuedAt + window + epsilon)
	_, err = svc.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken, "just after expiry")
}

func TestTokenService_IssueKeepsMilliseconds(t *testing.T) {
	svc, clock := newTestTokenService(t, 1500*time.Millisecond)
	clock.Set(250 * time.Millisecond)

	token, _, err := svc.Issue("alice", "CUSTOMER")
	require.NoError(t, err)

	payloadJSON, err := base64.RawURLEncoding.DecodeString(strings.Split(token, ".")[1])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(payloadJSON, &payload))
	assert.InDelta(t, float64(t0.Unix())+0.25, payload["iat"], 0.0005)
	assert.InDelta(t, float64(t0.Unix())+1.75, payload["exp"], 0.0005)
}

func TestTokenService_ExpiryBoundary(t *testing.T) {
	const window = 2 * time.Second
	svc, clock := newTestTokenService(t, window)

	token, _, err := svc.Issue("carol", "CUSTOMER")
	require.NoError(t, err)

	clock.Set(window - time.Millisecond)
	assert.True(t, svc.Validate(token), "just before expiry")

	clock.Set(window)
	_, err = svc.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken, "at expiry")

	clock.Set(window + time.Millisecond)
	_, err = svc.ExtractRole(token)
	assert.ErrorIs(t, err, ErrExpiredToken, "just after expiry")
}

func TestTokenService_LeewayExtendsExpiry(t *testing.T) {
	svc, clock := newTestTokenService(t, time.Second, WithLeeway(500*time.Millisecond))

	token, _, err := svc.Issue("dave", "CUSTOMER")
	require.NoError(t, err)

	clock.Set(1200 * time.Millisecond)
	assert.True(t, svc.Validate(token))

	clock.Set(1600 * time.Millisecond)
	assert.False(t, svc.Validate(token))
}

func TestTokenService_SignatureBitFlips(t *testing.T) {
	svc, _ := newTestTokenService(t, time.Hour)
	token, _, err := svc.Issue("alice", "CUSTOMER")
	require.NoError(t, err)

	signature := strings.Split(token, ".")[2]
	for char := range signature {
		for bit := 0; bit < 8; bit++ {
			tampered := flipSignatureBit(t, token, char, bit)
			_, err := svc.ExtractSubject(tampered)
			require.ErrorIs(t, err, ErrInvalidSignature, "char %d bit %d", char, bit)
			require.ErrorIs(t, err, ErrInvalidToken, "char %d bit %d", char, bit)
			require.False(t, svc.Validate(tampered), "char %d bit %d", char, bit)
		}
	}
}

func TestTokenService_SignaturePaddingBitsRejected(t *testing.T) {
	svc, _ := newTestTokenService(t, time.Hour)
	token, _, err := svc.Issue("alice", "CUSTOMER")
	require.NoError(t, err)

	// A 32-byte HMAC encodes to 43 characters whose last one carries two
	// unused bits. Changing only those bits must not be accepted.
	parts := strings.Split(token, ".")
	require.Len(t, parts[2], 43)
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	last := strings.IndexByte(alphabet, parts[2][42])
	require.GreaterOrEqual(t, last, 0)

	for low := 1; low < 4; low++ {
		variant := parts[2][:42] + string(alphabet[last&^3|low])
		tampered := parts[0] + "." + parts[1] + "." + variant
		_, err := svc.Parse(tampered)
		assert.ErrorIs(t, err, ErrInvalidSignature, "last char %q", variant[42])
		assert.False(t, svc.Validate(tampered))
	}
}

func TestTokenService_SignatureSegmentWithExtraDotReportsSignature(t *testing.T) {
	svc, _ := newTestTokenService(t, time.Hour)
	token, _, err := svc.Issue("alice", "CUSTOMER")
	require.NoError(t, err)

	_, err = svc.Parse(token + ".x")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenService_TamperedExpiredTokenReportsSignature(t *testing.T) {
	svc, clock := newTestTokenService(t, time.Second)
	token, _, err := svc.Issue("alice", "CUSTOMER")
	require.NoError(t, err)

	clock.Set(time.Hour)
	_, err = svc.Parse(flipSignatureBit(t, token, 7, 3))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenService_RoleEscalationInPayloadFails(t *testing.T) {
	svc, _ := newTestTokenService(t, time.Hour)
	token, _, err := svc.Issue("alice", "CUSTOMER")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), `"CUSTOMER"`, `"BANK_MANAGER"`, 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = svc.ExtractRole(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenService_WrongKeyRejected(t *testing.T) {
	issuer, err := NewTokenService(otherKey, time.Hour)
	require.NoError(t, err)
	token, _, err := issuer.Issue("alice", "CUSTOMER")
	require.NoError(t, err)

	verifier, _ := newTestTokenService(t, time.Hour)
	assert.False(t, verifier.Validate(token))
	_, err = verifier.ExtractSubject(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestTokenService_MalformedInput(t *testing.T) {
	svc, _ := newTestTokenService(t, time.Hour)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrEmptyClaims},
		{"blank", "   ", ErrEmptyClaims},
		{"single segment", "abc", ErrMalformedToken},
		{"two segments", "abc.def", ErrMalformedToken},
		{"four segments", "a.b.c.d", ErrMalformedToken},
		{"non base64 segments", "!!!.@@@.###", ErrMalformedToken},
		{"non base64 payload", "eyJhbGciOiJIUzI1NiJ9.%%%.c2ln", ErrMalformedToken},
		{"payload not json", "eyJhbGciOiJIUzI1NiJ9.bm90LWpzb24.c2ln", ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, svc.Validate(tt.token))
			})
			_, err := svc.Parse(tt.token)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenService_UnsupportedAlgorithms(t *testing.T) {
	svc, _ := newTestTokenService(t, time.Hour)
	claims := &Claims{
		Role: "BANK_MANAGER",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mallory",
			ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
		},
	}

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"XYZ","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"mallory","role":"BANK_MANAGER"}`))

	tests := map[string]string{
		"alg none":    signRaw(t, jwt.SigningMethodNone, claims, jwt.UnsafeAllowNoneSignatureType),
		"hs512":       signRaw(t, jwt.SigningMethodHS512, claims, testKey),
		"unknown alg": header + "." + body + ".c2ln",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Parse(token)
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.False(t, svc.Validate(token))
		})
	}
}

func TestTokenService_MissingClaims(t *testing.T) {
	svc, _ := newTestTokenService(t, time.Hour)
	exp := jwt.NewNumericDate(t0.Add(time.Hour))

	t.Run("missing role", func(t *testing.T) {
		token := signRaw(t, jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", ExpiresAt: exp},
		}, testKey)

		subject, err := svc.ExtractSubject(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", subject)

		_, err = svc.ExtractRole(token)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := signRaw(t, jwt.SigningMethodHS256, &Claims{
			Role:             "CUSTOMER",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp},
		}, testKey)
		_, err := svc.ExtractSubject(token)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		token := signRaw(t, jwt.SigningMethodHS256, &Claims{
			Role:             "CUSTOMER",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
		}, testKey)
		_, err := svc.Parse(token)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("role of wrong type", func(t *testing.T) {
		token := signRaw(t, jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  "alice",
			"role": 42,
			"exp":  exp.Unix(),
		}, testKey)
		_, err := svc.ExtractRole(token)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})
}

func TestTokenService_ValidateRecordsFailureKind(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	failures := &recordingFailures{}
	svc, clock := newTestTokenService(t, time.Second,
		WithLogger(zap.New(core)),
		WithFailureRecorder(failures))

	token, _, err := svc.Issue("alice", "CUSTOMER")
	require.NoError(t, err)

	assert.False(t, svc.Validate(""))
	assert.False(t, svc.Validate("a.b"))
	assert.False(t, svc.Validate(flipSignatureBit(t, token, 0, 0)))
	clock.Set(time.Minute)
	assert.False(t, svc.Validate(token))

	assert.Equal(t, []string{"empty_claims", "malformed", "invalid_signature", "expired"}, failures.reasons)
	assert.Equal(t, 4, logs.FilterMessage("token rejected").Len())
	for _, entry := range logs.All() {
		assert.NotContains(t, entry.ContextMap()["error"], token, "token must not be logged")
	}
}

func TestTokenService_ConcurrentUse(t *testing.T) {
	svc, err := NewTokenService(testKey, time.Hour)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, _, err := svc.Issue("alice", "CUSTOMER")
			if err != nil {
				errs <- err
				return
			}
			if _, err := svc.Parse(token); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestDecodeSigningKey(t *testing.T) {
	key, err := DecodeSigningKey(base64.StdEncoding.EncodeToString(testKey))
	require.NoError(t, err)
	assert.Equal(t, testKey, key)

	_, err = DecodeSigningKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrWeakSigningKey)

	_, err = DecodeSigningKey("%%% not base64")
	assert.Error(t, err)
}

func TestNewTokenService_RejectsBadSettings(t *testing.T) {
	_, err := NewTokenService([]byte("short"), time.Hour)
	assert.ErrorIs(t, err, ErrWeakSigningKey)

	_, err = NewTokenService(testKey, 0)
	assert.Error(t, err)

	_, err = NewTokenService(testKey, time.Hour, WithLeeway(-time.Second))
	assert.Error(t, err)
}

func TestFailureLabel(t *testing.T) {
	assert.Equal(t, "unknown", FailureLabel(assert.AnError))
	assert.Equal(t, "unsupported", FailureLabel(newTokenError(ErrUnsupportedFormat, nil)))
}
