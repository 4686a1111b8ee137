package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_ENV_PATH", path)
}

const completeEnv = `TELEGRAM_BOT_TOKEN=token
MYSQL_DSN=user:pass@tcp(localhost:3306)/bot?parseTime=true
KIE_API_KEY=key
ROOT_ADMIN_ID=100
ADMIN_IDS=200, 300
ADMIN_MONTH_LIMIT=2500.50
TOPUP_MIN=50
TOPUP_MAX=50000
S3_REGION=ru-central1
S3_ACCESS_KEY=ak
S3_SECRET_KEY=sk
S3_BUCKET=bucket
S3_PUBLIC_BASE_URL=https://cdn.example.com
`

func TestLoadCompleteConfig(t *testing.T) {
	writeEnvFile(t, completeEnv)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.BotToken)
	assert.Equal(t, int64(100), cfg.RootAdminID)
	assert.Equal(t, []int64{200, 300}, cfg.AdminIDs)
	assert.True(t, decimal.NewFromFloat(2500.50).Equal(cfg.AdminMonthLimit))
	assert.Equal(t, "https://api.kie.ai", cfg.KIEBaseURL)
	assert.Equal(t, "tesseract", cfg.TesseractCmd)
	assert.Equal(t, 60, cfg.PollMaxAttempts)
}

// The generation API key is optional: without it the bot starts and
// refuses generation requests instead of failing at boot.
func TestLoadAllowsMissingKIEKey(t *testing.T) {
	writeEnvFile(t, strings.ReplaceAll(completeEnv, "KIE_API_KEY=key\n", ""))
	t.Setenv("KIE_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.KIEAPIKey)
}

func TestLoadReportsMissingVariables(t *testing.T) {
	writeEnvFile(t, "TELEGRAM_BOT_TOKEN=token\nS3_REGION=r\nS3_ACCESS_KEY=a\nS3_SECRET_KEY=s\nS3_BUCKET=b\nS3_PUBLIC_BASE_URL=u\n")
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("ROOT_ADMIN_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MYSQL_DSN")
	assert.Contains(t, err.Error(), "ROOT_ADMIN_ID")
}

func TestLoadRejectsInvertedTopUpBounds(t *testing.T) {
	writeEnvFile(t, completeEnv+"TOPUP_MIN=1000\nTOPUP_MAX=100\n")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOPUP_MIN")
}

func TestIsAdmin(t *testing.T) {
	cfg := Config{RootAdminID: 1, AdminIDs: []int64{2, 3}}

	assert.True(t, cfg.IsAdmin(1))
	assert.True(t, cfg.IsAdmin(3))
	assert.False(t, cfg.IsAdmin(4))
}

func TestNormalizeKIEBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                    "https://api.kie.ai",
		"https://kie.ai":      "https://api.kie.ai",
		"kie.ai":              "https://api.kie.ai",
		"https://api.kie.ai":  "https://api.kie.ai",
		"http://localhost:18": "http://localhost:18",
	}
	for raw, want := range cases {
		assert.Equal(t, want, normalizeKIEBaseURL(raw, "https://api.kie.ai"), "input %q", raw)
	}
}
