package auth

import "context"

// Kind tells the three kinds of acting identity apart.
type Kind int

const (
	Anonymous Kind = iota
	Administrator
	RegisteredUser
)

func (k Kind) String() string {
	switch k {
	case Administrator:
		return "admin"
	case RegisteredUser:
		return "user"
	default:
		return "anonymous"
	}
}

// Principal is the identity acting on a request. It is derived from the
// session on every request and never stored on its own.
type Principal struct {
	Kind   Kind
	UserID int64
	Handle string
	Avatar string
}

func (p Principal) IsAdmin() bool { return p.Kind == Administrator }

func (p Principal) IsUser() bool { return p.Kind == RegisteredUser }

func (p Principal) IsAnonymous() bool { return p.Kind == Anonymous }

// Name identifies the principal in logs and the moderation journal.
func (p Principal) Name() string {
	if p.Handle == "" {
		return p.Kind.String()
	}
	return p.Handle
}

type ctxKey int

const (
	principalKey ctxKey = iota
	sessionKey
)

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the principal stored in ctx, or Anonymous.
func PrincipalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey).(Principal)
	return p
}
