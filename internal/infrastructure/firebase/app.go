package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Credentials selects the service account; JSON wins over File. With
// neither, application default credentials are used.
type Credentials struct {
	ProjectID string
	JSON      string
	File      string
}

func (c Credentials) options() []option.ClientOption {
	switch {
	case c.JSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.JSON))}
	case c.File != "":
		return []option.ClientOption{option.WithCredentialsFile(c.File)}
	}
	return nil
}

// NewApp initializes the Firebase app from inline JSON, a credentials file,
// or application default credentials, in that order.
func NewApp(ctx context.Context, creds Credentials) (*fbapp.App, error) {
	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: creds.ProjectID}, creds.options()...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app, nil
}

// NewFirestoreClient connects to Firestore. FIRESTORE_EMULATOR_HOST is
// honored by the client library.
func NewFirestoreClient(ctx context.Context, creds Credentials) (*firestore.Client, error) {
	client, err := firestore.NewClient(ctx, creds.ProjectID, creds.options()...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return client, nil
}

// NewAuthVerifier returns a token verifier backed by Firebase Auth.
func NewAuthVerifier(ctx context.Context, app *fbapp.App) (*FirebaseAuthClient, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return NewFirebaseAuthClient(client), nil
}

// PingFirestore reads at most one document to prove the client can reach
// the database.
func PingFirestore(ctx context.Context, client *firestore.Client) error {
	_, err := client.Collection("chats").Limit(1).Documents(ctx).Next()
	if err != nil && err != iterator.Done {
		return fmt.Errorf("ping firestore: %w", err)
	}
	return nil
}
