package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(env(map[string]string{"DATABASE_URL": "postgres://localhost/plans"}))
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 10*time.Minute, c.OverdueCacheTTL)
	assert.Equal(t, "claude", c.LLMCommand)
	assert.Equal(t, []string{"-p", "--output-format", "json"}, c.LLMArgs)
	assert.False(t, c.Debug)
	assert.Equal(t, logrus.InfoLevel, c.Logger().GetLevel())

	client, err := c.Redis()
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestLoadOverrides(t *testing.T) {
	c, err := Load(env(map[string]string{
		"DATABASE_URL":      "postgres://localhost/plans",
		"PORT":              "9090",
		"REDIS_URL":         "redis://localhost:6379/2",
		"OVERDUE_CACHE_TTL": "30s",
		"PLAN_TZ":           "UTC",
		"LLM_COMMAND":       "llm",
		"LLM_ARGS":          "-m gpt",
		"LLM_TIMEOUT":       "45s",
		"DEBUG":             "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, 30*time.Second, c.OverdueCacheTTL)
	assert.Equal(t, time.UTC, c.Location)
	assert.Equal(t, "llm", c.LLMCommand)
	assert.Equal(t, []string{"-m", "gpt"}, c.LLMArgs)
	assert.Equal(t, 45*time.Second, c.LLMTimeout)
	assert.Equal(t, logrus.DebugLevel, c.Logger().GetLevel())

	client, err := c.Redis()
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "localhost:6379", client.Options().Addr)
	assert.Equal(t, 2, client.Options().DB)
	_ = client.Close()
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database": {},
		"bad ttl":          {"DATABASE_URL": "x", "OVERDUE_CACHE_TTL": "soon"},
		"bad tz":           {"DATABASE_URL": "x", "PLAN_TZ": "Mars/Olympus"},
		"bad debug":        {"DATABASE_URL": "x", "DEBUG": "maybe"},
		"bad llm timeout":  {"DATABASE_URL": "x", "LLM_TIMEOUT": "-1s"},
	}
	for name, vals := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(env(vals))
			assert.Error(t, err)
		})
	}
}
