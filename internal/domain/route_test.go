package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteIdentifierStringAndCacheKey(t *testing.T) {
	id := RouteIdentifier{Tenant: "team-a", Service: "payments", Env: "prod", Version: "v2"}
	assert.Equal(t, "team-a:payments:prod:v2", id.String())
	assert.Equal(t, "route:team-a:payments:prod:v2", id.CacheKey())
}

func TestRouteIdentifierValid(t *testing.T) {
	assert.True(t, RouteIdentifier{Tenant: "a", Service: "b", Env: "c", Version: "d"}.Valid())
	assert.False(t, RouteIdentifier{Tenant: "a", Service: "b", Env: "c"}.Valid())
}

func TestParseIdentifierRoundTrip(t *testing.T) {
	id := RouteIdentifier{Tenant: "team-a", Service: "payments", Env: "prod", Version: "v2"}
	parsed, err := ParseIdentifier(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseIdentifierMalformed(t *testing.T) {
	_, err := ParseIdentifier("not-enough-parts")
	assert.Error(t, err)

	_, err = ParseIdentifier("a:b:c:")
	assert.Error(t, err)
}
