package firebase

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthClient verifies Firebase ID tokens issued to marketplace users.
type FirebaseAuthClient struct {
	client idTokenVerifier
}

// NewFirebaseAuthClient wraps an initialized Firebase Auth client.
func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// VerifyToken checks a Firebase ID token and returns its uid.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}
	if result.UID == "" {
		return "", fmt.Errorf("token has no uid")
	}
	return result.UID, nil
}
