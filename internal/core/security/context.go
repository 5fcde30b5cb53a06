package security

import (
	"context"

	appctx "fuelops/internal/core/context"
)

// Session is what the auth provider supplies for an authenticated request.
type Session struct {
	UserID            string
	Role              string
	CredentialGroupID string
	OrganizationName  string
}

// IsSuperAdmin reports whether the session bypasses scope filtering.
func (s Session) IsSuperAdmin() bool {
	return s.Role == appctx.RoleSuperAdmin
}

// Actor is either Authenticated or Anonymous.
type Actor interface {
	actor()
}

// Authenticated is an actor backed by a validated session.
type Authenticated struct {
	Session Session
}

// Anonymous is a public (kiosk) caller without credentials.
type Anonymous struct {
	ClientIP string
}

func (Authenticated) actor() {}
func (Anonymous) actor()     {}

// IsSuperAdmin reports whether a is an authenticated super-admin.
func IsSuperAdmin(a Actor) bool {
	auth, ok := a.(Authenticated)
	return ok && auth.Session.IsSuperAdmin()
}

// ActorFromContext builds the actor from the user placed in ctx by the auth middleware.
func ActorFromContext(ctx context.Context) Actor {
	u := appctx.GetUser(ctx)
	if u == nil || u.UserID == "" {
		var ip string
		if t := appctx.GetTrace(ctx); t != nil {
			ip = t.ClientIP
		}
		return Anonymous{ClientIP: ip}
	}
	return Authenticated{Session: SessionFromUser(u)}
}

// SessionFromUser copies the claims the scope rules read.
func SessionFromUser(u *appctx.UserContext) Session {
	return Session{
		UserID:            u.UserID,
		Role:              u.Role,
		CredentialGroupID: u.CredentialGroupID,
		OrganizationName:  u.OrganizationName,
	}
}
