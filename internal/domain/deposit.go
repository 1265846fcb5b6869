package domain

import "time"

// FixedDeposit is a customer's investment at a fixed annual rate.
type FixedDeposit struct {
	ID             string    `json:"id"`
	Reference      string    `json:"reference"`
	UserID         string    `json:"user_id"`
	Principal      float64   `json:"principal"`
	Rate           float64   `json:"rate"`
	TenureInMonths int       `json:"tenure_in_months"`
	MaturityAmount float64   `json:"maturity_amount"`
	InterestEarned float64   `json:"interest_earned"`
	CreatedAt      time.Time `json:"created_at"`
	MaturesAt      time.Time `json:"matures_at"`
}

// Dashboard aggregates a customer's profile and investments.
type Dashboard struct {
	Username        string         `json:"username"`
	Email           string         `json:"email"`
	Investments     []FixedDeposit `json:"investments"`
	TotalInvestment float64        `json:"total_investment"`
	TotalMaturity   float64        `json:"total_maturity"`
}

// CustomerPortfolio is a manager's view of one customer.
type CustomerPortfolio struct {
	Username        string         `json:"username"`
	Email           string         `json:"email"`
	Investments     []FixedDeposit `json:"investments"`
	TotalInvestment float64        `json:"total_investment"`
}
