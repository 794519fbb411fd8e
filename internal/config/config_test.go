package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"GEMINI_API_KEY":    "gk",
		"SUPABASE_URL":      "https://proj.supabase.co/",
		"SUPABASE_ANON_KEY": "anon",
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, "18911", cfg.Server.Port)
	assert.Equal(t, AuthProviderSupabase, cfg.Auth.Provider)
	assert.Equal(t, "https://proj.supabase.co", cfg.Auth.SupabaseURL)
	assert.Equal(t, "gemini-pro", cfg.GenAI.Model)
	assert.Equal(t, 2.0, cfg.GenAI.RPS)
	assert.Equal(t, 4, cfg.GenAI.Burst)
	assert.Equal(t, 120*time.Second, cfg.Redis.LockTTL)
	assert.True(t, cfg.Workers.OrphanSweepEnabled)
	assert.Equal(t, time.Hour, cfg.Workers.OrphanSweepInterval)
	assert.Equal(t, time.Hour, cfg.Workers.OrphanSweepGrace)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	m := baseEnv()
	m["PORT"] = "9000"
	m["GEMINI_MODEL"] = "gemini-1.5-flash"
	m["GEMINI_RPS"] = "0.5"
	m["RATE_LIMIT_BURST"] = "nope"
	m["ORPHAN_SWEEP_ENABLED"] = "false"
	m["ORPHAN_SWEEP_GRACE_MINUTES"] = "5"

	cfg, err := FromEnv(envMap(m))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "gemini-1.5-flash", cfg.GenAI.Model)
	assert.Equal(t, 0.5, cfg.GenAI.RPS)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.False(t, cfg.Workers.OrphanSweepEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Workers.OrphanSweepGrace)
}

func TestFromEnv_ValidationErrors(t *testing.T) {
	cases := map[string]func(m map[string]string){
		"missing gemini key":    func(m map[string]string) { delete(m, "GEMINI_API_KEY") },
		"missing supabase url":  func(m map[string]string) { delete(m, "SUPABASE_URL") },
		"missing anon key":      func(m map[string]string) { delete(m, "SUPABASE_ANON_KEY") },
		"unknown provider":      func(m map[string]string) { m["AUTH_PROVIDER"] = "okta" },
		"firebase without path": func(m map[string]string) { m["AUTH_PROVIDER"] = "firebase" },
		"production without db": func(m map[string]string) { m["APP_ENV"] = "production" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := baseEnv()
			mutate(m)
			_, err := FromEnv(envMap(m))
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_Firebase(t *testing.T) {
	m := map[string]string{
		"GEMINI_API_KEY":            "gk",
		"AUTH_PROVIDER":             "Firebase",
		"FIREBASE_CREDENTIALS_PATH": "/etc/sa.json",
	}
	cfg, err := FromEnv(envMap(m))
	require.NoError(t, err)
	assert.Equal(t, AuthProviderFirebase, cfg.Auth.Provider)
}
