package auth

import (
	"fmt"
	"path"
	"strings"

	"github.com/fdbank/deposit-service/internal/domain"
)

// RequirementKind classifies what a route demands of the caller.
type RequirementKind int

const (
	KindAuthenticated RequirementKind = iota
	KindPublic
	KindRole
)

// Requirement is the access rule attached to a path pattern.
type Requirement struct {
	Kind RequirementKind
	Role domain.Role
}

// Public allows anonymous callers.
func Public() Requirement { return Requirement{Kind: KindPublic} }

// Authenticated allows any caller holding a valid token.
func Authenticated() Requirement { return Requirement{Kind: KindAuthenticated} }

// HasRole allows callers whose role claim equals role.
func HasRole(role domain.Role) Requirement { return Requirement{Kind: KindRole, Role: role} }

func (r Requirement) String() string {
	switch r.Kind {
	case KindPublic:
		return "public"
	case KindRole:
		return "role:" + string(r.Role)
	default:
		return "authenticated-any-role"
	}
}

// Permits returns nil when principal satisfies r, ErrUnauthenticated when a
// principal is needed but absent, and ErrForbidden on a role mismatch.
func (r Requirement) Permits(principal *Principal) error {
	if r.Kind == KindPublic {
		return nil
	}
	if principal == nil {
		return ErrUnauthenticated
	}
	if r.Kind == KindRole && !principal.HasRole(r.Role) {
		return ErrForbidden
	}
	return nil
}

// Rule binds a path pattern to a requirement.
//
// Patterns are absolute paths. A "*" segment matches exactly one segment and
// a trailing "/**" matches the prefix itself and everything below it.
type Rule struct {
	Pattern     string
	Requirement Requirement
}

// Policy is an ordered rule list evaluated first match wins. Paths matching
// no rule require an authenticated caller.
type Policy struct {
	rules []Rule
}

// NewPolicy validates patterns and keeps the declared order.
func NewPolicy(rules ...Rule) (*Policy, error) {
	for _, rule := range rules {
		if err := validatePattern(rule.Pattern); err != nil {
			return nil, err
		}
		if rule.Requirement.Kind == KindRole && rule.Requirement.Role == "" {
			return nil, fmt.Errorf("auth: rule %q requires a role name", rule.Pattern)
		}
	}
	return &Policy{rules: append([]Rule(nil), rules...)}, nil
}

// DefaultPolicy is the service's route table.
func DefaultPolicy() *Policy {
	policy, err := NewPolicy(
		Rule{Pattern: "/health/**", Requirement: Public()},
		Rule{Pattern: "/metrics", Requirement: Public()},
		Rule{Pattern: "/api/auth/**", Requirement: Public()},
		Rule{Pattern: "/api/fd/calculate", Requirement: Public()},
		Rule{Pattern: "/api/customer/**", Requirement: HasRole(domain.RoleCustomer)},
		Rule{Pattern: "/api/fd/invest", Requirement: HasRole(domain.RoleCustomer)},
		Rule{Pattern: "/api/manager/**", Requirement: HasRole(domain.RoleBankManager)},
	)
	if err != nil {
		panic(err)
	}
	return policy
}

// RequiredRole returns the requirement of the first rule matching requestPath.
func (p *Policy) RequiredRole(requestPath string) Requirement {
	segments := splitPath(requestPath)
	for _, rule := range p.rules {
		if matchSegments(splitPath(rule.Pattern), segments) {
			return rule.Requirement
		}
	}
	return Authenticated()
}

// Rules returns a copy of the rule list in evaluation order.
func (p *Policy) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

func validatePattern(pattern string) error {
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("auth: pattern %q must be absolute", pattern)
	}
	segments := splitPath(pattern)
	for i, seg := range segments {
		if seg == "**" {
			if i != len(segments)-1 {
				return fmt.Errorf("auth: pattern %q may only use ** as its last segment", pattern)
			}
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return fmt.Errorf("auth: pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// splitPath cleans p so dot segments and duplicate slashes cannot dodge a rule.
func splitPath(p string) []string {
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(cleaned, "/"), "/")
}

func matchSegments(pattern, segments []string) bool {
	for i, seg := range pattern {
		if seg == "**" {
			return true
		}
		if i >= len(segments) {
			return false
		}
		if ok, _ := path.Match(seg, segments[i]); !ok {
			return false
		}
	}
	return len(pattern) == len(segments)
}
