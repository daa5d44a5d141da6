package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	Env = map[string]string{"APP_PORT": "4000"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("APP_PORT", "5000")

	assert.Equal(t, "4000", GetEnv("APP_PORT", "3000"))
	assert.Equal(t, "fallback", GetEnv("MISSING_KEY_FOR_TEST", "fallback"))
}

func TestGetEnvIntAndDuration(t *testing.T) {
	Env = map[string]string{"WORKERS": "7", "BAD": "x", "TOL": "300"}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, 7, GetEnvInt("WORKERS", 1))
	assert.Equal(t, 1, GetEnvInt("BAD", 1))
	assert.Equal(t, 5*time.Minute, GetEnvDuration("TOL", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("NOPE", time.Second))
}
