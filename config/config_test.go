package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 必須・任意の環境変数をまとめてクリアします
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SEMGREP_BASE_URL", "SEMGREP_TOKEN", "DEPLOYMENT_SLUG",
		"JIRA_PROJECT_ID", "PROJECT_MAPPING_CSV", "PROJECT_PREFIX",
		"FINDINGS_PAGE_SIZE", "FINDINGS_STATUS", "MAX_BATCH_SIZE",
		"REQUEST_TIMEOUT_S", "RATE_LIMIT_SLEEP_S",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://semgrep.dev", cfg.SemgrepBaseURL)
	assert.Equal(t, 200, cfg.FindingsPageSize)
	assert.Equal(t, "open", cfg.FindingsStatus)
	assert.Equal(t, 200, cfg.MaxBatchSize)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.RateLimitSleep)
	assert.False(t, cfg.HasJiraProjectID)
}

func TestLoadConfigTrimsBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEMGREP_BASE_URL", "https://semgrep.example.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://semgrep.example.com", cfg.SemgrepBaseURL)
}

func TestLoadConfigNonIntegerJiraProjectID(t *testing.T) {
	clearEnv(t)
	t.Setenv("JIRA_PROJECT_ID", "abc")

	_, err := LoadConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "数値ではありません")
}

func TestValidateMissingRequired(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	missing := cfg.Validate()
	assert.Len(t, missing, 3)
}

func TestValidateComplete(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEMGREP_TOKEN", "token")
	t.Setenv("DEPLOYMENT_SLUG", "slug")
	t.Setenv("JIRA_PROJECT_ID", "10001")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Empty(t, cfg.Validate())
	assert.True(t, cfg.HasJiraProjectID)
	assert.Equal(t, 10001, cfg.JiraProjectID)
	require.NoError(t, cfg.ValidateExclusive())
}

func TestValidateMappingCSVSatisfiesProjectID(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEMGREP_TOKEN", "token")
	t.Setenv("DEPLOYMENT_SLUG", "slug")
	t.Setenv("PROJECT_MAPPING_CSV", "mapping.csv")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Empty(t, cfg.Validate())
}

func TestValidateExclusiveRejectsBoth(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEMGREP_TOKEN", "token")
	t.Setenv("DEPLOYMENT_SLUG", "slug")
	t.Setenv("JIRA_PROJECT_ID", "10001")
	t.Setenv("PROJECT_MAPPING_CSV", "mapping.csv")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Error(t, cfg.ValidateExclusive())
}
