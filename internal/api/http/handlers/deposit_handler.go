package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fdbank/deposit-service/internal/api/dto"
	"github.com/fdbank/deposit-service/internal/auth"
	"github.com/fdbank/deposit-service/internal/domain"
	"github.com/fdbank/deposit-service/internal/service"
	apperrors "github.com/fdbank/deposit-service/pkg/util"
)

// DepositHandler exposes the calculator, investing and both dashboards.
type DepositHandler struct {
	deposits *service.DepositService
}

// NewDepositHandler constructs handler.
func NewDepositHandler(deposits *service.DepositService) *DepositHandler {
	return &DepositHandler{deposits: deposits}
}

// Calculate handles POST /api/fd/calculate.
func (h *DepositHandler) Calculate(c *fiber.Ctx) error {
	input, err := parseDepositRequest(c)
	if err != nil {
		return err
	}

	quote, err := h.deposits.Calculate(input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CalculationResponse{
		Principal:      quote.Principal,
		Rate:           quote.Rate,
		TenureInMonths: quote.TenureInMonths,
		MaturityAmount: quote.MaturityAmount,
		InterestEarned: quote.InterestEarned,
	}})
}

// Invest handles POST /api/fd/invest.
func (h *DepositHandler) Invest(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	input, err := parseDepositRequest(c)
	if err != nil {
		return err
	}

	deposit, err := h.deposits.Invest(c.UserContext(), principal.Subject, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": investmentResponse(*deposit)})
}

// Dashboard handles GET /api/customer/dashboard.
func (h *DepositHandler) Dashboard(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	dashboard, err := h.deposits.CustomerDashboard(c.UserContext(), principal.Subject)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		Username:        dashboard.Username,
		Email:           dashboard.Email,
		Investments:     investmentResponses(dashboard.Investments),
		TotalInvestment: dashboard.TotalInvestment,
		TotalMaturity:   dashboard.TotalMaturity,
	}})
}

// Customers handles GET /api/manager/customers.
func (h *DepositHandler) Customers(c *fiber.Ctx) error {
	portfolios, err := h.deposits.ManagerCustomers(c.UserContext())
	if err != nil {
		return err
	}

	resp := make([]dto.CustomerResponse, 0, len(portfolios))
	for _, p := range portfolios {
		resp = append(resp, dto.CustomerResponse{
			Username:        p.Username,
			Email:           p.Email,
			Investments:     investmentResponses(p.Investments),
			TotalInvestment: p.TotalInvestment,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

func parseDepositRequest(c *fiber.Ctx) (service.CalculationInput, error) {
	var req dto.DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return service.CalculationInput{}, fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	return service.CalculationInput{
		Principal:      req.Principal,
		Rate:           req.Rate,
		TenureInMonths: req.Tenure(),
	}, nil
}

func investmentResponse(d domain.FixedDeposit) dto.InvestmentResponse {
	return dto.InvestmentResponse{
		Reference:      d.Reference,
		Principal:      d.Principal,
		Rate:           d.Rate,
		TenureInMonths: d.TenureInMonths,
		MaturityAmount: d.MaturityAmount,
		InterestEarned: d.InterestEarned,
		CreatedAt:      d.CreatedAt,
		MaturesAt:      d.MaturesAt,
	}
}

func investmentResponses(deposits []domain.FixedDeposit) []dto.InvestmentResponse {
	resp := make([]dto.InvestmentResponse, 0, len(deposits))
	for _, d := range deposits {
		resp = append(resp, investmentResponse(d))
	}
	return resp
}
