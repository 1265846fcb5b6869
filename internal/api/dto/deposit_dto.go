package dto

import "time"

// DepositRequest is the payload of both the calculator and invest endpoints.
// Browser clients send the tenure as tenureInMonths.
type DepositRequest struct {
	Principal           float64 `json:"principal"`
	Rate                float64 `json:"rate"`
	TenureInMonths      int     `json:"tenure_in_months"`
	TenureInMonthsCamel int     `json:"tenureInMonths"`
}

// Tenure prefers tenure_in_months and falls back to tenureInMonths.
func (r DepositRequest) Tenure() int {
	if r.TenureInMonths != 0 {
		return r.TenureInMonths
	}
	return r.TenureInMonthsCamel
}

// CalculationResponse is a quote.
type CalculationResponse struct {
	Principal      float64 `json:"principal"`
	Rate           float64 `json:"rate"`
	TenureInMonths int     `json:"tenure_in_months"`
	MaturityAmount float64 `json:"maturity_amount"`
	InterestEarned float64 `json:"interest_earned"`
}

// InvestmentResponse describes a booked deposit.
type InvestmentResponse struct {
	Reference      string    `json:"reference"`
	Principal      float64   `json:"principal"`
	Rate           float64   `json:"rate"`
	TenureInMonths int       `json:"tenure_in_months"`
	MaturityAmount float64   `json:"maturity_amount"`
	InterestEarned float64   `json:"interest_earned"`
	CreatedAt      time.Time `json:"created_at"`
	MaturesAt      time.Time `json:"matures_at"`
}

// DashboardResponse is the customer's dashboard.
type DashboardResponse struct {
	Username        string               `json:"username"`
	Email           string               `json:"email"`
	Investments     []InvestmentResponse `json:"investments"`
	TotalInvestment float64              `json:"total_investment"`
	TotalMaturity   float64              `json:"total_maturity"`
}

// CustomerResponse is one row of the manager's customer list.
type CustomerResponse struct {
	Username        string               `json:"username"`
	Email           string               `json:"email"`
	Investments     []InvestmentResponse `json:"investments"`
	TotalInvestment float64              `json:"total_investment"`
}
