package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdbank/deposit-service/internal/domain"
)

// DepositRepository persists booked fixed deposits.
type DepositRepository interface {
	Create(ctx context.Context, deposit *domain.FixedDeposit) error
	ListByUser(ctx context.Context, userID string) ([]domain.FixedDeposit, error)
	ListAll(ctx context.Context) ([]domain.FixedDeposit, error)
}

type depositRepository struct {
	pool *pgxpool.Pool
}

// NewDepositRepository returns a Postgres-backed implementation.
func NewDepositRepository(pool *pgxpool.Pool) DepositRepository {
	return &depositRepository{pool: pool}
}

const depositColumns = `id::text, reference::text, user_id::text, principal, rate, tenure_in_months,
            maturity_amount, interest_earned, created_at, matures_at`

func (r *depositRepository) Create(ctx context.Context, deposit *domain.FixedDeposit) error {
	const query = `
        INSERT INTO fixed_deposits (reference, user_id, principal, rate, tenure_in_months, maturity_amount, interest_earned, matures_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id::text, created_at`

	err := r.pool.QueryRow(ctx, query,
		deposit.Reference,
		deposit.UserID,
		deposit.Principal,
		deposit.Rate,
		deposit.TenureInMonths,
		deposit.MaturityAmount,
		deposit.InterestEarned,
		deposit.MaturesAt,
	).Scan(&deposit.ID, &deposit.CreatedAt)
	return mapWriteError(err)
}

func (r *depositRepository) ListByUser(ctx context.Context, userID string) ([]domain.FixedDeposit, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+depositColumns+`
        FROM fixed_deposits WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	return collectDeposits(rows)
}

func (r *depositRepository) ListAll(ctx context.Context) ([]domain.FixedDeposit, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+depositColumns+`
        FROM fixed_deposits ORDER BY user_id, created_at`)
	if err != nil {
		return nil, err
	}
	return collectDeposits(rows)
}

func collectDeposits(rows pgx.Rows) ([]domain.FixedDeposit, error) {
	defer rows.Close()

	var deposits []domain.FixedDeposit
	for rows.Next() {
		var d domain.FixedDeposit
		if err := rows.Scan(
			&d.ID,
			&d.Reference,
			&d.UserID,
			&d.Principal,
			&d.Rate,
			&d.TenureInMonths,
			&d.MaturityAmount,
			&d.InterestEarned,
			&d.CreatedAt,
			&d.MaturesAt,
		); err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}
