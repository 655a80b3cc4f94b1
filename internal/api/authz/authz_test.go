// internal/api/authz/authz_test.go
package authz

import (
	"context"
	"errors"
	"testing"
)

func TestUserFromContext(t *testing.T) {
	if UserFromContext(nil) != nil {
		t.Error("nil context should yield nil user")
	}
	if UserFromContext(context.Background()) != nil {
		t.Error("empty context should yield nil user")
	}

	ctx := ContextWithUser(context.Background(), &AuthUser{ID: 7})
	user := UserFromContext(ctx)
	if user == nil || user.ID != 7 {
		t.Errorf("user = %+v, want ID 7", user)
	}
}

func TestRequireLeagueAccess(t *testing.T) {
	base := context.Background()

	if err := RequireLeagueAccess(base, 1); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("no user: err = %v, want ErrUnauthenticated", err)
	}

	withUser := ContextWithUser(base, &AuthUser{ID: 7})
	if err := RequireLeagueAccess(withUser, 1); !errors.Is(err, ErrForbidden) {
		t.Errorf("no league: err = %v, want ErrForbidden", err)
	}

	scoped := ContextWithLeague(withUser, &League{ID: 1, Name: "Metro"})
	if err := RequireLeagueAccess(scoped, 1); err != nil {
		t.Errorf("matching league: err = %v", err)
	}
	if err := RequireLeagueAccess(scoped, 2); !errors.Is(err, ErrForbidden) {
		t.Errorf("mismatched league: err = %v, want ErrForbidden", err)
	}
}
