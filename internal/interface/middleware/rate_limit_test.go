package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testContext(t *testing.T, path string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", path, nil)
	return c
}

func TestRemainingQuota(t *testing.T) {
	assert.Equal(t, 4, remainingQuota(5, 1))
	assert.Equal(t, 0, remainingQuota(5, 5))
	assert.Equal(t, 0, remainingQuota(5, 6))
	assert.Equal(t, 0, remainingQuota(5, 100))
}

func TestKeyByUsernameFallsBackToIP(t *testing.T) {
	c := testContext(t, "/api/profile")
	anon := KeyByUsername()(c)
	assert.Contains(t, anon, "rl:user:anon:ip:")

	c.Set(CtxUsernameKey, "dave_97")
	assert.Equal(t, "rl:user:dave_97", KeyByUsername()(c))
}

func TestKeyByIPAndPathIncludesPath(t *testing.T) {
	c := testContext(t, "/api/auth/register")
	key := KeyByIPAndPath()(c)
	assert.Contains(t, key, "/api/auth/register")
	assert.Contains(t, key, ":ip:")
}

func TestRateLimitDisabledWithoutRedis(t *testing.T) {
	h := RateLimit(nil, 5, 0, KeyByIP(), nil)
	c := testContext(t, "/api/login")
	h(c)
	assert.False(t, c.IsAborted())
}

func TestToInt(t *testing.T) {
	assert.Equal(t, 7, toInt(int64(7)))
	assert.Equal(t, 7, toInt(7))
	assert.Equal(t, 7, toInt("7"))
	assert.Equal(t, 0, toInt(3.5))
}
