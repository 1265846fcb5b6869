package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdbank/deposit-service/internal/domain"
)

func TestDefaultPolicy_RequiredRole(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		path string
		want Requirement
	}{
		{"/api/auth/login", Public()},
		{"/api/auth/register", Public()},
		{"/api/auth", Public()},
		{"/api/fd/calculate", Public()},
		{"/health/live", Public()},
		{"/metrics", Public()},
		{"/api/customer/dashboard", HasRole(domain.RoleCustomer)},
		{"/api/customer/deposits/42", HasRole(domain.RoleCustomer)},
		{"/api/fd/invest", HasRole(domain.RoleCustomer)},
		{"/api/manager/customers", HasRole(domain.RoleBankManager)},
		{"/api/me", Authenticated()},
		{"/api/fd/calculate/extra", Authenticated()},
		{"/", Authenticated()},
		{"/unknown", Authenticated()},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.RequiredRole(tt.path))
		})
	}
}

func TestPolicy_PathNormalization(t *testing.T) {
	policy := DefaultPolicy()

	assert.Equal(t, HasRole(domain.RoleBankManager), policy.RequiredRole("/api/auth/../manager/customers"))
	assert.Equal(t, HasRole(domain.RoleBankManager), policy.RequiredRole("//api//manager/customers/"))
	assert.Equal(t, HasRole(domain.RoleCustomer), policy.RequiredRole("/api/fd/invest/"))
}

func TestPolicy_FirstMatchWins(t *testing.T) {
	policy, err := NewPolicy(
		Rule{Pattern: "/api/reports/public", Requirement: Public()},
		Rule{Pattern: "/api/reports/**", Requirement: HasRole(domain.RoleBankManager)},
		Rule{Pattern: "/api/reports/public", Requirement: HasRole(domain.RoleCustomer)},
	)
	require.NoError(t, err)

	assert.Equal(t, Public(), policy.RequiredRole("/api/reports/public"))
	assert.Equal(t, HasRole(domain.RoleBankManager), policy.RequiredRole("/api/reports/2024"))
}

func TestPolicy_SingleSegmentWildcard(t *testing.T) {
	policy, err := NewPolicy(Rule{Pattern: "/api/*/status", Requirement: Public()})
	require.NoError(t, err)

	assert.Equal(t, Public(), policy.RequiredRole("/api/fd/status"))
	assert.Equal(t, Authenticated(), policy.RequiredRole("/api/fd/x/status"))
	assert.Equal(t, Authenticated(), policy.RequiredRole("/api/status"))
}

func TestNewPolicy_RejectsBadRules(t *testing.T) {
	tests := map[string]Rule{
		"relative":          {Pattern: "api/x", Requirement: Public()},
		"inner globstar":    {Pattern: "/api/**/x", Requirement: Public()},
		"bad glob":          {Pattern: "/api/[x", Requirement: Public()},
		"role without name": {Pattern: "/api/x", Requirement: Requirement{Kind: KindRole}},
	}
	for name, rule := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewPolicy(rule)
			assert.Error(t, err)
		})
	}
}

func TestPolicy_RulesIsACopy(t *testing.T) {
	policy := DefaultPolicy()
	rules := policy.Rules()
	require.NotEmpty(t, rules)
	rules[0].Requirement = HasRole("HACKER")

	assert.Equal(t, Public(), policy.RequiredRole("/health/live"))
}

func TestRequirement_Permits(t *testing.T) {
	customer := &Principal{Subject: "alice", Role: domain.RoleCustomer}
	prefixed := &Principal{Subject: "carl", Role: "ROLE_CUSTOMER"}
	manager := &Principal{Subject: "bob", Role: domain.RoleBankManager}

	assert.NoError(t, Public().Permits(nil))
	assert.ErrorIs(t, Authenticated().Permits(nil), ErrUnauthenticated)
	assert.NoError(t, Authenticated().Permits(manager))
	assert.ErrorIs(t, HasRole(domain.RoleCustomer).Permits(nil), ErrUnauthenticated)
	assert.NoError(t, HasRole(domain.RoleCustomer).Permits(customer))
	assert.NoError(t, HasRole(domain.RoleCustomer).Permits(prefixed))
	assert.ErrorIs(t, HasRole(domain.RoleCustomer).Permits(manager), ErrForbidden)
}

func TestRequirement_String(t *testing.T) {
	assert.Equal(t, "public", Public().String())
	assert.Equal(t, "authenticated-any-role", Authenticated().String())
	assert.Equal(t, "role:BANK_MANAGER", HasRole(domain.RoleBankManager).String())
	assert.Equal(t, "authenticated-any-role", Requirement{}.String())
}
