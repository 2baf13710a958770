package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FOLLOWUP_TYPES", "")
	t.Setenv("SCHEDULING_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Scheduling.LookupTimeout())
	assert.Equal(t, 4, cfg.Scheduling.LookupConcurrency)
	assert.Equal(t, []string{"appointment", "repair", "contract", "verifyCustomer"}, cfg.Scheduling.FollowUpTypes)

	loc, err := cfg.Scheduling.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_SchedulingOverrides(t *testing.T) {
	t.Setenv("SCHEDULING_TIMEZONE", "Europe/Amsterdam")
	t.Setenv("SCHEDULING_LOOKUP_TIMEOUT_MS", "250")
	t.Setenv("SCHEDULING_CACHE_TTL_SECONDS", "0")
	t.Setenv("FOLLOWUP_TYPES", " repair, ,warranty ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Scheduling.LookupTimeout())
	assert.Zero(t, cfg.Scheduling.CacheTTL())
	assert.Equal(t, []string{"repair", "warranty"}, cfg.Scheduling.FollowUpTypes)

	loc, err := cfg.Scheduling.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Amsterdam", loc.String())
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("SCHEDULING_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	require.Error(t, err)
}
