package auth

import (
	"strings"
	"time"

	"github.com/fdbank/deposit-service/internal/domain"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	Subject   string
	Role      domain.Role
	ExpiresAt time.Time
}

// HasRole compares roles ignoring a "ROLE_" authority prefix on either side.
func (p *Principal) HasRole(role domain.Role) bool {
	if p == nil {
		return false
	}
	return normalizeRole(p.Role) == normalizeRole(role)
}

func normalizeRole(role domain.Role) string {
	return strings.TrimPrefix(string(role), "ROLE_")
}
