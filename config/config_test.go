package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profile(t *testing.T, dotenv, relays string) string {
	dir := t.TempDir()
	if dotenv != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0600))
	}
	if relays != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "relays.txt"), []byte(relays), 0600))
	}
	t.Setenv("PROFILE", dir)
	return dir
}

func TestLoadFromProfile(t *testing.T) {
	dir := profile(t, "API_KEY=key\nBEARER_TOKEN=tok\nPRIVATE_KEY=nsec1secret\nSEND_TIMEOUT=3s\n", "")
	t.Setenv("LOG_LEVEL", "debug")
	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Profile)
	assert.Equal(t, "tok", cfg.BearerToken)
	assert.Equal(t, "nsec1secret", cfg.PrivateKey)
	assert.Equal(t, 3*time.Second, cfg.SendTimeout)
	assert.Equal(t, 15*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "relays.txt"), cfg.RelaysFile)
	assert.Equal(t, "https://api.twitter.com/2/tweets/search/stream", cfg.StreamURL)
	require.NoError(t, cfg.Require("API_KEY", "BEARER_TOKEN", "PRIVATE_KEY"))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	profile(t, "BEARER_TOKEN=from-file\n", "")
	t.Setenv("BEARER_TOKEN", "from-env")
	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.BearerToken)
}

func TestRequireNamesMissingKeysOnly(t *testing.T) {
	profile(t, "BEARER_TOKEN=tok-value\n", "")
	t.Setenv("PRIVATE_KEY", "")
	cfg, err := New()
	require.NoError(t, err)
	err = cfg.Require("BEARER_TOKEN", "PRIVATE_KEY")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
	assert.Contains(t, err.Error(), "PRIVATE_KEY")
	assert.NotContains(t, err.Error(), "tok-value")
}

func TestMalformedDotEnv(t *testing.T) {
	profile(t, "API_KEY=x\ngarbage\n", "")
	_, err := New()
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestReadRelays(t *testing.T) {
	relays, err := ReadRelays(strings.NewReader(
		"# my relays\nwss://relay.damus.io\n\n  nos.lol  \nwss://relay.damus.io/\nlocalhost:7447\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://relay.damus.io", "wss://nos.lol", "ws://localhost:7447"}, relays)

	_, err = ReadRelays(strings.NewReader("# nothing\n\n"))
	assert.True(t, errors.Is(err, ErrConfig))
	_, err = ReadRelays(strings.NewReader("wss://ok.example\nbad:port:here\n"))
	assert.True(t, errors.Is(err, ErrConfig))
	assert.Contains(t, err.Error(), "line 2")
}

func TestRelaysFile(t *testing.T) {
	profile(t, "", "wss://a.example\nwss://b.example\n")
	cfg, err := New()
	require.NoError(t, err)
	relays, err := cfg.Relays()
	require.NoError(t, err)
	assert.Len(t, relays, 2)

	cfg.RelaysFile = filepath.Join(t.TempDir(), "absent.txt")
	_, err = cfg.Relays()
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestPrintEnvRedactsSecrets(t *testing.T) {
	profile(t, "API_KEY=key-value\nBEARER_TOKEN=tok-value\nPRIVATE_KEY=nsec1value\n", "")
	cfg, err := New()
	require.NoError(t, err)
	var buf bytes.Buffer
	cfg.PrintEnv(&buf)
	out := buf.String()
	assert.Contains(t, out, "export BEARER_TOKEN=<redacted>")
	assert.Contains(t, out, "export SEND_TIMEOUT=10s")
	for _, secret := range []string{"key-value", "tok-value", "nsec1value"} {
		assert.NotContains(t, out, secret)
	}
	buf.Reset()
	PrintHelp(cfg, &buf)
	assert.Contains(t, buf.String(), "BEARER_TOKEN")
}
