package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
)

func TestAuthContext_RoundTrip(t *testing.T) {
	account := newAccount(auth.RoleCounsellor, "LDCE", auth.CapMembers)
	ac := auth.NewAuthContext(account)

	ctx := auth.WithContext(context.Background(), ac)
	got, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, ac, got)

	_, ok = auth.FromContext(context.Background())
	assert.False(t, ok)

	_, ok = auth.FromContext(auth.WithContext(context.Background(), nil))
	assert.False(t, ok)
}

func TestAuthContext_Methods(t *testing.T) {
	account := newAccount(auth.RoleCounsellor, "LDCE", auth.CapMembers)
	ac := auth.NewAuthContext(account)

	assert.Equal(t, account.ID.String(), ac.AccountID())
	assert.False(t, ac.IsSuperAdmin())
	assert.True(t, ac.Can(auth.CapMembers))
	assert.False(t, ac.Can(auth.CapEvents))
	assert.Equal(t, auth.ActorRef{ID: account.ID.String(), Type: "counsellor"}, ac.Actor())

	var none *auth.AuthContext
	assert.Equal(t, "", none.AccountID())
	assert.False(t, none.Can(auth.CapEvents))
	assert.Equal(t, "anonymous", none.Actor().Type)
	assert.Nil(t, auth.NewAuthContext(nil))

	admin := auth.NewAuthContext(newAccount(auth.RoleSuperAdmin, ""))
	assert.True(t, admin.Can(auth.CapCarousel))
}
