// Package authtoken is an ambient enrichment beyond spec.md's original
// scope (see SPEC_FULL.md "Domain Stack"): it extracts claims from
// a Bearer JWT found in the Authorization header (spec §3 already parses
// Authorization for Basic/Digest tokens; REST endpoints that additionally
// accept JWT bearer tokens can use this to avoid re-parsing claims
// themselves). There is no original_source precedent for JWT since the
// embedded target predates any bearer-token auth scheme in this codebase;
// grounded on github.com/golang-jwt/jwt/v5's idiomatic parse-and-extract
// usage.
package authtoken

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotBearer is returned when the Authorization value isn't a Bearer
// token at all (so callers can fall back to Basic/Digest handling).
var ErrNotBearer = errors.New("authtoken: not a bearer token")

// Claims extracts the registered claim set plus whatever extra claims the
// token carries, without verifying a signature — this server has no
// trusted signing key of its own; it is meant to sit behind a gateway that
// already validated the token, and only needs the claims for
// authorization decisions in host REST endpoints.
func Claims(authorizationHeader string) (jwt.MapClaims, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorizationHeader, prefix) {
		return nil, ErrNotBearer
	}
	raw := strings.TrimPrefix(authorizationHeader, prefix)

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	_, _, err := parser.ParseUnverified(raw, claims)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Subject is a convenience accessor for the "sub" claim.
func Subject(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}
