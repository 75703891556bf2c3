package firebase

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	token *auth.Token
	err   error
}

func (f fakeVerifier) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return f.token, f.err
}

func TestVerifyToken(t *testing.T) {
	c := &FirebaseAuthClient{client: fakeVerifier{token: &auth.Token{UID: "user-1"}}}
	uid, err := c.VerifyToken(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)

	c = &FirebaseAuthClient{client: fakeVerifier{err: errors.New("expired")}}
	_, err = c.VerifyToken(context.Background(), "id-token")
	assert.EqualError(t, err, "expired")

	c = &FirebaseAuthClient{client: fakeVerifier{token: &auth.Token{}}}
	_, err = c.VerifyToken(context.Background(), "id-token")
	assert.Error(t, err)
}

func TestCredentialsOptions(t *testing.T) {
	assert.Len(t, Credentials{JSON: "{}", File: "sa.json"}.options(), 1)
	assert.Len(t, Credentials{File: "sa.json"}.options(), 1)
	assert.Empty(t, Credentials{}.options())
}
