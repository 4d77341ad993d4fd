package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUserConfigWritesDefault(t *testing.T) {
	dir := t.TempDir()

	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yml"), path)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Scan.LookbackDays)
	assert.Equal(t, "imap.gmail.com", cfg.Email.IMAPHost)
	assert.True(t, cfg.Feeds.Enabled)

	// Until the user fills in credentials, validation flags the missing
	// username rather than letting a scan dial with an empty login.
	_, val := NormalizeAndValidate(cfg)
	assert.False(t, val.OK())
}

func TestEnsureUserConfigKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("scan:\n  lookback_days: 3\n"), 0o644))

	got, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	cfg, err := Load(got)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Scan.LookbackDays)
}

func TestNormalizeAndValidateEmailDefaults(t *testing.T) {
	var cfg Config
	cfg.Email.Enabled = true
	cfg.Email.IMAPHost = "imap.example.com"
	cfg.Email.Username = "user@example.com"

	out, val := NormalizeAndValidate(cfg)
	assert.True(t, val.OK())
	assert.Equal(t, 993, out.Email.IMAPPort)
	assert.Equal(t, "INBOX", out.Email.Mailbox)
	assert.Equal(t, "user@example.com", out.Email.KeyringAccount)
}
