// README: Firebase Auth account creation.
package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// Accounts creates credentials in the identity provider.
type Accounts interface {
	CreateAccount(ctx context.Context, email, password, displayName string) (string, error)
}

type FirebaseAccounts struct {
	client *auth.Client
}

func NewFirebaseAccounts(client *auth.Client) *FirebaseAccounts {
	return &FirebaseAccounts{client: client}
}

func (a *FirebaseAccounts) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)
	rec, err := a.client.CreateUser(ctx, params)
	switch {
	case err == nil:
		return rec.UID, nil
	case auth.IsEmailAlreadyExists(err):
		return "", ErrEmailInUse
	default:
		return "", fmt.Errorf("firebase CreateUser: %w", err)
	}
}
