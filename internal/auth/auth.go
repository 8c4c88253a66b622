// Package auth matches bearer tokens on the admin API to the scopes they
// grant.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/zeebo/blake3"
)

// Scopes understood by the admin API.
const (
	ScopeEXCRead    = "exc:ro"
	ScopeEXCWrite   = "exc:rw"
	ScopeEventsRead = "events:ro"
	ScopeAll        = "*"
)

// AllScopes lists every scope a token may carry.
var AllScopes = []string{ScopeAll, ScopeEXCRead, ScopeEXCWrite, ScopeEventsRead}

var (
	ErrMissingHeader = errors.New("missing Authorization header")
	ErrBadHeader     = errors.New("invalid Authorization header format")
	ErrMissingToken  = errors.New("missing bearer token")
)

// KnownScope reports whether s is one of AllScopes.
func KnownScope(s string) bool {
	for _, known := range AllScopes {
		if s == known {
			return true
		}
	}
	return false
}

// TokenConfig is a bearer token with a set of scopes.
type TokenConfig struct {
	Token  string
	Scopes []string
}

// ScopeSet is the effective scopes of a principal. exc:rw implies exc:ro.
type ScopeSet map[string]struct{}

func NewScopeSet(scopes ...string) ScopeSet {
	set := make(ScopeSet, len(scopes)+1)
	for _, s := range scopes {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = struct{}{}
		}
	}
	if _, ok := set[ScopeEXCWrite]; ok {
		set[ScopeEXCRead] = struct{}{}
	}
	return set
}

// Allows reports whether the set holds any of required, or the wildcard.
// An empty required list is always allowed.
func (s ScopeSet) Allows(required ...string) bool {
	if len(required) == 0 {
		return true
	}
	if _, ok := s[ScopeAll]; ok {
		return true
	}
	for _, r := range required {
		if _, ok := s[r]; ok {
			return true
		}
	}
	return false
}

// Principal is the caller a request runs as. ID is a short digest of the
// token, safe to log or use as a rate-limit key; it is empty when the API is
// open.
type Principal struct {
	ID     string
	Scopes ScopeSet
}

// Anonymous is the principal used when no tokens are configured.
func Anonymous() Principal {
	return Principal{Scopes: NewScopeSet(ScopeAll)}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingHeader
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", ErrBadHeader
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

type keyEntry struct {
	digest    [32]byte
	principal Principal
}

// Keyring holds configured tokens by digest. Lookups hash the presented
// token and compare digests in constant time, so neither token length nor
// a matching prefix shows up in timing.
type Keyring struct {
	entries []keyEntry
}

func NewKeyring(tokens []TokenConfig) *Keyring {
	k := &Keyring{entries: make([]keyEntry, 0, len(tokens))}
	for _, t := range tokens {
		if t.Token == "" {
			continue
		}
		digest := blake3.Sum256([]byte(t.Token))
		k.entries = append(k.entries, keyEntry{
			digest: digest,
			principal: Principal{
				ID:     hex.EncodeToString(digest[:6]),
				Scopes: NewScopeSet(t.Scopes...),
			},
		})
	}
	return k
}

// Len is the number of usable tokens; zero means the API is open.
func (k *Keyring) Len() int { return len(k.entries) }

// Authenticate returns the principal for presented. Every entry is compared
// so the time taken does not depend on which token matched.
func (k *Keyring) Authenticate(presented string) (Principal, bool) {
	if presented == "" {
		return Principal{}, false
	}
	digest := blake3.Sum256([]byte(presented))
	var (
		found Principal
		ok    bool
	)
	for _, e := range k.entries {
		if subtle.ConstantTimeCompare(digest[:], e.digest[:]) == 1 {
			found, ok = e.principal, true
		}
	}
	return found, ok
}
