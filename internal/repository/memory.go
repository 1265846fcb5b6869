package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fdbank/deposit-service/internal/domain"
)

// MemoryUserRepository keeps users in process. It backs the service when no
// database is configured and stands in for Postgres in tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
	now   func() time.Time
}

// NewMemoryUserRepository returns an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User), now: time.Now}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicate
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *MemoryUserRepository) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []domain.User
	for _, user := range r.users {
		if user.Role == role {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (r *MemoryUserRepository) find(match func(domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if match(user) {
			found := user
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// MemoryDepositRepository keeps deposits in process in insertion order.
type MemoryDepositRepository struct {
	mu       sync.RWMutex
	deposits []domain.FixedDeposit
	now      func() time.Time
}

// NewMemoryDepositRepository returns an empty store.
func NewMemoryDepositRepository() *MemoryDepositRepository {
	return &MemoryDepositRepository{now: time.Now}
}

func (r *MemoryDepositRepository) Create(_ context.Context, deposit *domain.FixedDeposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.deposits {
		if existing.Reference == deposit.Reference {
			return ErrDuplicate
		}
	}
	deposit.ID = uuid.NewString()
	deposit.CreatedAt = r.now()
	r.deposits = append(r.deposits, *deposit)
	return nil
}

func (r *MemoryDepositRepository) ListByUser(_ context.Context, userID string) ([]domain.FixedDeposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var deposits []domain.FixedDeposit
	for _, d := range r.deposits {
		if d.UserID == userID {
			deposits = append(deposits, d)
		}
	}
	return deposits, nil
}

func (r *MemoryDepositRepository) ListAll(_ context.Context) ([]domain.FixedDeposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.FixedDeposit(nil), r.deposits...), nil
}
