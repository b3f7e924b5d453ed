package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusrx/m/domain"
)

type stubSource struct {
	calls int
	p     Principal
	err   error
}

func (s *stubSource) Principal(ctx context.Context, token string) (Principal, error) {
	s.calls++
	return s.p, s.err
}

func TestReloadResolvesPrincipal(t *testing.T) {
	src := &stubSource{p: Principal{UserID: "u1", Role: domain.RolePharmacy, PharmacyID: "p1"}}
	s := New(src, "token")

	assert.Equal(t, Anonymous, s.Principal())
	require.NoError(t, s.Reload(context.Background()))
	assert.True(t, s.Principal().IsPharmacy())
	assert.Equal(t, 1, src.calls)

	src.p = Principal{UserID: "u1", Role: domain.RoleAdmin}
	require.NoError(t, s.Reload(context.Background()))
	assert.True(t, s.Principal().IsAdmin())
}

func TestReloadWithoutTokenIsAnonymous(t *testing.T) {
	src := &stubSource{}
	s := New(src, "")

	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, Anonymous, s.Principal())
	assert.Zero(t, src.calls)
}

func TestReloadErrorKeepsPrevious(t *testing.T) {
	src := &stubSource{p: Principal{UserID: "u1", Role: domain.RoleAdmin}}
	s := New(src, "token")
	require.NoError(t, s.Reload(context.Background()))

	src.err = errors.New("expired")
	require.Error(t, s.Reload(context.Background()))
	assert.True(t, s.Principal().IsAdmin())
}

func TestNilSessionIsAnonymous(t *testing.T) {
	var s *Session
	assert.Equal(t, Anonymous, s.Principal())
	assert.NoError(t, s.Reload(context.Background()))
	assert.Nil(t, FromContext(context.Background()))

	ctx := WithContext(context.Background(), Static(Principal{Role: domain.RoleAdmin}))
	assert.True(t, FromContext(ctx).Principal().IsAdmin())
}
