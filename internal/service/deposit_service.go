package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fdbank/deposit-service/internal/cache"
	"github.com/fdbank/deposit-service/internal/domain"
	"github.com/fdbank/deposit-service/internal/events"
	"github.com/fdbank/deposit-service/internal/observability"
	"github.com/fdbank/deposit-service/internal/repository"
	apperrors "github.com/fdbank/deposit-service/pkg/util"
)

// Deposit limits accepted by the calculator.
const (
	MaxPrincipal      = 1_000_000_000
	MaxRatePercent    = 100
	MaxTenureInMonths = 1200
)

// compoundingPerYear is the quarterly compounding frequency.
const compoundingPerYear = 4

// CalculationInput is a fixed-deposit quote request.
type CalculationInput struct {
	Principal      float64
	Rate           float64
	TenureInMonths int
}

// Calculation is a quote: the input echoed with the projected returns.
type Calculation struct {
	Principal      float64
	Rate           float64
	TenureInMonths int
	MaturityAmount float64
	InterestEarned float64
}

// DepositService quotes, books and reports fixed deposits.
type DepositService struct {
	users      repository.UserRepository
	deposits   repository.DepositRepository
	cache      *cache.DashboardCache
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// DepositDependencies encapsulates collaborators for the deposit service.
type DepositDependencies struct {
	UserRepo    repository.UserRepository
	DepositRepo repository.DepositRepository
	Cache       *cache.DashboardCache
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

// NewDepositService constructs the service.
func NewDepositService(deps DepositDependencies) *DepositService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &DepositService{
		users:      deps.UserRepo,
		deposits:   deps.DepositRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        now,
	}
}

// Calculate projects a deposit compounded quarterly:
// A = P * (1 + r/400)^(4 * months/12), rounded to cents.
func (s *DepositService) Calculate(input CalculationInput) (*Calculation, error) {
	if err := validateCalculation(input); err != nil {
		return nil, err
	}

	periods := compoundingPerYear * float64(input.TenureInMonths) / 12
	maturity := input.Principal * math.Pow(1+input.Rate/(100*compoundingPerYear), periods)
	maturity = roundCents(maturity)

	return &Calculation{
		Principal:      input.Principal,
		Rate:           input.Rate,
		TenureInMonths: input.TenureInMonths,
		MaturityAmount: maturity,
		InterestEarned: roundCents(maturity - input.Principal),
	}, nil
}

// Invest books a deposit for the customer identified by username.
func (s *DepositService) Invest(ctx context.Context, username string, input CalculationInput) (*domain.FixedDeposit, error) {
	quote, err := s.Calculate(input)
	if err != nil {
		return nil, err
	}
	user, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deposit := &domain.FixedDeposit{
		Reference:      uuid.NewString(),
		UserID:         user.ID,
		Principal:      quote.Principal,
		Rate:           quote.Rate,
		TenureInMonths: quote.TenureInMonths,
		MaturityAmount: quote.MaturityAmount,
		InterestEarned: quote.InterestEarned,
		MaturesAt:      now.AddDate(0, quote.TenureInMonths, 0),
	}
	if err := s.deposits.Create(ctx, deposit); err != nil {
		return nil, err
	}
	s.metrics.RecordInvestment()

	event := events.New(events.EventDepositInvested, user.ID, user.Username, now, events.DepositInvestedPayload{
		Reference:      deposit.Reference,
		Principal:      deposit.Principal,
		Rate:           deposit.Rate,
		TenureInMonths: deposit.TenureInMonths,
		MaturityAmount: deposit.MaturityAmount,
		MaturesAt:      deposit.MaturesAt,
	})
	if s.dispatcher != nil {
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handlers failed",
				zap.String("event_type", string(event.Type)),
				zap.String("reference", deposit.Reference),
				zap.Error(err))
		}
	}
	return deposit, nil
}

// CustomerDashboard returns the customer's profile, deposits and totals,
// served from the cache while it is fresh.
func (s *DepositService) CustomerDashboard(ctx context.Context, username string) (*domain.Dashboard, error) {
	user, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}

	cached, ok, err := s.cache.Get(ctx, user.ID)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	if s.cache.Enabled() {
		s.metrics.RecordCacheLookup(ok)
	}
	if ok {
		return cached, nil
	}

	deposits, err := s.deposits.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	dashboard := &domain.Dashboard{
		Username:    user.Username,
		Email:       user.Email,
		Investments: nonNil(deposits),
	}
	for _, d := range deposits {
		dashboard.TotalInvestment += d.Principal
		dashboard.TotalMaturity += d.MaturityAmount
	}
	dashboard.TotalInvestment = roundCents(dashboard.TotalInvestment)
	dashboard.TotalMaturity = roundCents(dashboard.TotalMaturity)

	if err := s.cache.Set(ctx, user.ID, dashboard); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	return dashboard, nil
}

// ManagerCustomers lists every customer with their deposits, including
// customers who have not invested yet.
func (s *DepositService) ManagerCustomers(ctx context.Context) ([]domain.CustomerPortfolio, error) {
	customers, err := s.users.ListByRole(ctx, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	deposits, err := s.deposits.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string][]domain.FixedDeposit, len(customers))
	for _, d := range deposits {
		byUser[d.UserID] = append(byUser[d.UserID], d)
	}

	portfolios := make([]domain.CustomerPortfolio, 0, len(customers))
	for _, customer := range customers {
		portfolio := domain.CustomerPortfolio{
			Username:    customer.Username,
			Email:       customer.Email,
			Investments: nonNil(byUser[customer.ID]),
		}
		for _, d := range portfolio.Investments {
			portfolio.TotalInvestment += d.Principal
		}
		portfolio.TotalInvestment = roundCents(portfolio.TotalInvestment)
		portfolios = append(portfolios, portfolio)
	}
	return portfolios, nil
}

// RegisterHandlers drops a customer's cached dashboard whenever they invest.
func (s *DepositService) RegisterHandlers(dispatcher events.Dispatcher) {
	if s == nil {
		return
	}
	dispatcher.Subscribe(events.EventDepositInvested, func(ctx context.Context, event events.Event) error {
		return s.cache.Invalidate(ctx, event.UserID)
	})
}

func (s *DepositService) lookupUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("user", map[string]any{"username": username})
	}
	return user, err
}

func validateCalculation(input CalculationInput) error {
	details := map[string]any{}
	switch {
	case math.IsNaN(input.Principal) || input.Principal <= 0:
		details["principal"] = "must be greater than 0"
	case input.Principal > MaxPrincipal:
		details["principal"] = "exceeds the maximum deposit"
	}
	switch {
	case math.IsNaN(input.Rate) || input.Rate <= 0:
		details["rate"] = "must be greater than 0"
	case input.Rate > MaxRatePercent:
		details["rate"] = "must not exceed 100"
	}
	switch {
	case input.TenureInMonths <= 0:
		details["tenure_in_months"] = "must be greater than 0"
	case input.TenureInMonths > MaxTenureInMonths:
		details["tenure_in_months"] = "must not exceed 1200"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid deposit parameters", details)
	}
	return nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func nonNil(deposits []domain.FixedDeposit) []domain.FixedDeposit {
	if deposits == nil {
		return []domain.FixedDeposit{}
	}
	return deposits
}
