package account

import (
	"context"

	"github.com/alecgard/troupe/internal/auth"
)

// AuthAdapter adapts account.Store to the auth.SessionLookup interface.
type AuthAdapter struct {
	store *Store
}

// NewAuthAdapter creates a new AuthAdapter wrapping the given account store.
func NewAuthAdapter(store *Store) *AuthAdapter {
	return &AuthAdapter{store: store}
}

// LookupSession resolves a session token to the account's current identity
// and stored role.
func (a *AuthAdapter) LookupSession(ctx context.Context, token string) (*auth.User, error) {
	acc, err := a.store.GetSessionAccount(ctx, token)
	if err != nil {
		return nil, err
	}
	return &auth.User{
		ID:    acc.ID,
		Email: acc.Email,
		Name:  acc.Name,
		Role:  string(acc.Type),
	}, nil
}
