package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		err    error
	}{
		{header: "", err: ErrMissingHeader},
		{header: "Basic abc", err: ErrBadHeader},
		{header: "bearer abc", err: ErrBadHeader},
		{header: "Bearer    ", err: ErrMissingToken},
		{header: "Bearer abc", want: "abc"},
		{header: "Bearer  abc ", want: "abc"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		got, err := BearerToken(r)
		if tc.err != nil {
			assert.ErrorIs(t, err, tc.err, tc.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestKeyring(t *testing.T) {
	k := NewKeyring([]TokenConfig{
		{Token: "reader", Scopes: []string{"exc:ro"}},
		{Token: "writer", Scopes: []string{" exc:rw ", ""}},
		{Token: "admin", Scopes: []string{"*"}},
		{Token: "", Scopes: []string{"*"}},
	})
	assert.Equal(t, 3, k.Len())

	for _, bad := range []string{"nope", "", "reade", "readerr"} {
		_, ok := k.Authenticate(bad)
		assert.False(t, ok, bad)
	}

	reader, ok := k.Authenticate("reader")
	require.True(t, ok)
	assert.True(t, reader.Scopes.Allows(ScopeEXCRead))
	assert.False(t, reader.Scopes.Allows(ScopeEXCWrite))
	assert.False(t, reader.Scopes.Allows(ScopeEventsRead))
	assert.Len(t, reader.ID, 12)

	writer, ok := k.Authenticate("writer")
	require.True(t, ok)
	assert.True(t, writer.Scopes.Allows(ScopeEXCWrite))
	assert.True(t, writer.Scopes.Allows(ScopeEXCRead), "rw implies ro")
	assert.NotEqual(t, reader.ID, writer.ID)

	admin, ok := k.Authenticate("admin")
	require.True(t, ok)
	assert.True(t, admin.Scopes.Allows(ScopeEventsRead, ScopeEXCWrite))
	assert.True(t, admin.Scopes.Allows())
}

func TestAnonymousAndKnownScope(t *testing.T) {
	anon := Anonymous()
	assert.Empty(t, anon.ID)
	for _, s := range AllScopes {
		assert.True(t, KnownScope(s), s)
		assert.True(t, anon.Scopes.Allows(s), s)
	}
	assert.False(t, KnownScope("jobs:rw"))
	assert.False(t, NewScopeSet().Allows(ScopeEXCRead))
}

func TestPrincipalContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := PrincipalFromContext(r.Context())
	assert.False(t, ok)

	ctx := WithPrincipal(r.Context(), Principal{ID: "abc"})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "abc", p.ID)
}
