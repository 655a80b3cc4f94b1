// internal/api/authz/authz.go
package authz

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// AuthUser is the identity the upstream gateway attached to the request.
type AuthUser struct {
	ID int64
}

// League is the tenant a request is scoped to.
type League struct {
	ID   int64
	Name string
}

type userContextKey struct{}
type leagueContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}
	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}
	return user
}

func ContextWithLeague(ctx context.Context, league *League) context.Context {
	return context.WithValue(ctx, leagueContextKey{}, league)
}

func LeagueFromContext(ctx context.Context) *League {
	if ctx == nil {
		return nil
	}
	league, ok := ctx.Value(leagueContextKey{}).(*League)
	if !ok {
		return nil
	}
	return league
}

// RequireLeagueAccess checks that the request carries an authenticated user
// and that the league resolved by the scope middleware matches the one named
// in the path.
func RequireLeagueAccess(ctx context.Context, requestedLeagueID int64) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}

	league := LeagueFromContext(ctx)
	if league == nil || league.ID != requestedLeagueID {
		return ErrForbidden
	}

	return nil
}
