package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/newstype/internal/model"
	"github.com/verte-zerg/newstype/internal/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	svc, err := NewService(st, Options{Secret: []byte("test_secret"), TTL: time.Hour})
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(nil, Options{})
	require.Error(t, err)
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := newService(t)

	id, token, err := svc.SignUp(t.Context(), "Reader@Example.com", "hunter22", "")
	require.NoError(t, err)
	assert.NotEmpty(t, id.UserID)
	assert.Equal(t, "reader", id.DisplayName)
	assert.Equal(t, "reader@example.com", id.Email)
	require.NotEmpty(t, token)

	verified, err := svc.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, id, verified)

	signedIn, _, err := svc.SignIn(t.Context(), "reader@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, id.UserID, signedIn.UserID)
}

func TestSignUpValidation(t *testing.T) {
	svc := newService(t)

	_, _, err := svc.SignUp(t.Context(), "not-an-email", "hunter22", "x")
	require.ErrorIs(t, err, ErrAuth)

	_, _, err = svc.SignUp(t.Context(), "a@b.com", "short", "x")
	require.ErrorIs(t, err, ErrAuth)

	_, _, err = svc.SignUp(t.Context(), "a@b.com", "hunter22", "x")
	require.NoError(t, err)
	_, _, err = svc.SignUp(t.Context(), "A@B.com", "hunter22", "y")
	require.ErrorIs(t, err, ErrAuth)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc := newService(t)
	_, _, err := svc.SignUp(t.Context(), "a@b.com", "hunter22", "A")
	require.NoError(t, err)

	_, _, err = svc.SignIn(t.Context(), "a@b.com", "wrong-password")
	require.ErrorIs(t, err, ErrAuth)
	_, _, err = svc.SignIn(t.Context(), "missing@b.com", "hunter22")
	require.ErrorIs(t, err, ErrAuth)
}

func TestVerifyRejectsInvalidTokens(t *testing.T) {
	svc := newService(t)

	_, err := svc.Verify("")
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Verify("garbage")
	require.ErrorIs(t, err, ErrUnauthenticated)

	other, err := NewService(nil, Options{Secret: []byte("other")})
	require.NoError(t, err)
	foreign, err := other.Issue(model.Identity{UserID: "u"})
	require.NoError(t, err)
	_, err = svc.Verify(foreign)
	require.ErrorIs(t, err, ErrUnauthenticated)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "newstype"}).SignedString([]byte("test_secret"))
	require.NoError(t, err)
	_, err = svc.Verify(noSubject)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newService(t)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	token, err := svc.Issue(model.Identity{UserID: "u"})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.Verify(token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLoadOrCreateSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secret")
	first, err := LoadOrCreateSecret(path)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := LoadOrCreateSecret(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestContextPersistsAndNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	ctx := NewContext(path)

	_, ok := ctx.Current()
	assert.False(t, ok)
	_, err := ctx.IssueCredential()
	require.ErrorIs(t, err, ErrUnauthenticated)

	var events []bool
	unsubscribe := ctx.Subscribe(func(_ model.Identity, signedIn bool) {
		events = append(events, signedIn)
	})

	id := model.Identity{UserID: "u-1", DisplayName: "Ada", Email: "ada@example.com"}
	require.NoError(t, ctx.Set(id, "tok"))

	loaded, err := LoadContext(path)
	require.NoError(t, err)
	got, ok := loaded.Current()
	require.True(t, ok)
	assert.Equal(t, id, got)
	token, err := loaded.IssueCredential()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	require.NoError(t, ctx.Clear())
	unsubscribe()
	require.NoError(t, ctx.Set(id, "tok2"))

	assert.Equal(t, []bool{true, false}, events)

	require.NoError(t, ctx.Clear())
	cleared, err := LoadContext(path)
	require.NoError(t, err)
	_, ok = cleared.Current()
	assert.False(t, ok)
}
