package app_test

import (
	"context"
	"testing"

	"bloom-client/internal/api"
	"bloom-client/internal/app"
	"bloom-client/internal/domain"
	"bloom-client/internal/infra/memory"
	"bloom-client/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthAPI struct {
	calls  int
	tokens domain.Tokens
	reg    domain.Registration
	err    error
}

func (f *fakeAuthAPI) Register(context.Context, string, string) (domain.Registration, error) {
	f.calls++
	return f.reg, f.err
}

func (f *fakeAuthAPI) Login(context.Context, string, string) (domain.Tokens, error) {
	f.calls++
	return f.tokens, f.err
}

func newAuth(fake *fakeAuthAPI) (*app.AuthService, *session.Session) {
	sess := session.New(memory.NewSessionStore(), session.DefaultPolicy())
	return app.NewAuthService(fake, sess, nil), sess
}

func TestLoginStoresCredentials(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAuthAPI{tokens: domain.Tokens{Access: "acc", Refresh: "ref"}}
	auth, sess := newAuth(fake)

	creds, err := auth.Login(ctx, " alice ", "secret1")
	require.NoError(t, err)

	assert.Equal(t, domain.Credentials{AccessToken: "acc", RefreshToken: "ref", Username: "alice"}, creds)
	assert.Equal(t, creds, sess.Credentials(ctx))
}

func TestRegisterStoresReturnedTokens(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAuthAPI{reg: domain.Registration{ID: "7", Username: "bob", Tokens: domain.Tokens{Access: "a", Refresh: "r"}}}
	auth, sess := newAuth(fake)

	_, err := auth.Register(ctx, "bob", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "a", sess.AccessToken(ctx))
	assert.Equal(t, "bob", sess.Username(ctx))
}

func TestAuthValidatesBeforeCalling(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAuthAPI{}
	auth, _ := newAuth(fake)

	_, err := auth.Login(ctx, "", "x")
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	_, err = auth.Register(ctx, "carol", "12345")
	assert.ErrorIs(t, err, domain.ErrPasswordTooShort)
	_, err = auth.Register(ctx, "   ", "123456")
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	assert.Zero(t, fake.calls)
}

func TestLoginFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAuthAPI{err: &api.Error{Status: 401, Message: "No active account found with the given credentials"}}
	auth, sess := newAuth(fake)

	_, err := auth.Login(ctx, "alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, "No active account found with the given credentials", api.Message(err))
	assert.False(t, sess.Credentials(ctx).Authenticated())
}

func TestLogoutClearsAllValues(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAuthAPI{tokens: domain.Tokens{Access: "acc", Refresh: "ref"}}
	auth, sess := newAuth(fake)
	_, err := auth.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx))

	assert.Equal(t, domain.Credentials{}, sess.Credentials(ctx))
}
