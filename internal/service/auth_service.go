package service

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fdbank/deposit-service/internal/auth"
	"github.com/fdbank/deposit-service/internal/domain"
	"github.com/fdbank/deposit-service/internal/events"
	"github.com/fdbank/deposit-service/internal/observability"
	"github.com/fdbank/deposit-service/internal/repository"
	apperrors "github.com/fdbank/deposit-service/pkg/util"
)

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`)

// Login failures share one message so callers cannot probe for usernames.
const invalidCredentials = "invalid username or password"

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	hasher     *auth.PasswordHasher
	tokens     *auth.TokenService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     *auth.PasswordHasher
	Tokens     *auth.TokenService
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// AuthResult is a user together with a freshly issued token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates a CUSTOMER account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, username, email, password, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.EventCustomerRegistered, user.ID, user.Username, s.now(),
		events.CustomerRegisteredPayload{Username: user.Username, Email: user.Email, Role: user.Role}))

	return s.issue(user)
}

// Login checks credentials and returns a token carrying the user's role.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError("username and password required", nil)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		s.hasher.SpendComparison(password)
		s.metrics.RecordLogin("failure")
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Matches(user.PasswordHash, password) {
		s.metrics.RecordLogin("failure")
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}

	s.metrics.RecordLogin("success")
	return s.issue(user)
}

// BootstrapManager creates the configured BANK_MANAGER account unless the
// username already exists. It reports whether an account was created.
func (s *AuthService) BootstrapManager(ctx context.Context, username, email, password string) (bool, error) {
	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != domain.RoleBankManager {
			return false, apperrors.NewConflict("bootstrap username belongs to a non-manager account",
				map[string]any{"username": username})
		}
		return false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return false, err
	}

	if _, err := s.createUser(ctx, username, email, password, domain.RoleBankManager); err != nil {
		return false, err
	}
	s.logger.Info("bank manager account created", zap.String("username", username))
	return true, nil
}

// Profile loads the account behind an authenticated subject.
func (s *AuthService) Profile(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("user", map[string]any{"username": username})
	}
	return user, err
}

func (s *AuthService) createUser(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, error) {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already registered", map[string]any{"username": username})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperrors.NewValidationError("password too long", map[string]any{"max_bytes": auth.MaxPasswordBytes})
	}
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("username or email already registered", nil)
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokens.Issue(user.Username, string(user.Role))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func validateRegistration(username, email, password string) error {
	details := map[string]any{}
	if !usernamePattern.MatchString(username) {
		details["username"] = "3-64 characters: letters, digits, dot, dash or underscore"
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		details["email"] = "must be a valid email address"
	}
	if len(password) < minPasswordLength {
		details["password"] = "must be at least 8 characters"
	} else if len(password) > auth.MaxPasswordBytes {
		details["password"] = "must be at most 72 bytes"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid registration", details)
	}
	return nil
}
