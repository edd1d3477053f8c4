package auth

import "context"

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

var roleRank = map[string]int{
	RoleUser:      1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

func IsValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   string
	Username string
	Role     string
}

// Authenticated reports whether p identifies a user. A nil principal is anonymous.
func (p *Principal) Authenticated() bool {
	return p != nil && p.UserID != ""
}

// Can reports whether p holds role or a role ranked above it.
func (p *Principal) Can(role string) bool {
	if p == nil {
		return false
	}
	have, ok := roleRank[p.Role]
	if !ok {
		return false
	}
	return have >= roleRank[role]
}

// Operator is the principal used for trusted out-of-band callers (CLI, admin API key).
func Operator() *Principal {
	return &Principal{UserID: "", Username: "operator", Role: RoleAdmin}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the request principal or nil for anonymous callers.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
