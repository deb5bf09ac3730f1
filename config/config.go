// Package config loads nostrbird's configuration from the environment and a
// .env file in the profile directory, and reads the relay list.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"go-simpler.org/env"

	"nostrbird.lol/chk"
	"nostrbird.lol/config/keyvalue"
	dotenv "nostrbird.lol/env"
	"nostrbird.lol/log"
	"nostrbird.lol/normalize"
)

const AppName = "nostrbird"

// ErrConfig is a missing or malformed credential, setting or relay list.
var ErrConfig = errors.New("configuration error")

// C is the configuration of nostrbird.
type C struct {
	Profile         string        `env:"PROFILE" usage:"directory holding .env and the relay list (default: the working directory if it has a .env, else the XDG config directory)"`
	APIKey          string        `env:"API_KEY" secret:"true" usage:"stream API key"`
	BearerToken     string        `env:"BEARER_TOKEN" secret:"true" usage:"stream API bearer token"`
	PrivateKey      string        `env:"PRIVATE_KEY" secret:"true" usage:"nostr secret key, nsec or hex"`
	RelaysFile      string        `env:"RELAYS_FILE" default:"relays.txt" usage:"file listing one relay URL per line, relative to the profile directory"`
	StreamURL       string        `env:"STREAM_URL" default:"https://api.twitter.com/2/tweets/search/stream" usage:"filtered stream endpoint"`
	RulesURL        string        `env:"RULES_URL" default:"https://api.twitter.com/2/tweets/search/stream/rules" usage:"stream rules endpoint"`
	SendTimeout     time.Duration `env:"SEND_TIMEOUT" default:"10s" usage:"upper bound on one send to one relay"`
	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT" default:"15s" usage:"upper bound on connecting to one relay"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s" usage:"how long to wait for in flight events on shutdown"`
	LogLevel        string        `env:"LOG_LEVEL" default:"info" usage:"log level: off fatal error warn info debug trace"`
	MetricsListen   string        `env:"METRICS_LISTEN" usage:"address to serve prometheus /metrics on, empty to disable"`
	Pprof           bool          `env:"PPROF" default:"false" usage:"write a CPU profile to the profile directory"`
}

// New resolves the profile directory, then loads C from the process
// environment and the profile's .env file, the environment taking precedence.
func New() (cfg *C, err error) {
	profile := os.Getenv("PROFILE")
	if profile == "" {
		profile = DefaultProfile()
	}
	file := dotenv.Env{}
	envPath := filepath.Join(profile, ".env")
	if FileExists(envPath) {
		if file, err = dotenv.GetEnv(envPath); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		log.D.F("loaded %s", envPath)
	}
	cfg = &C{}
	if err = env.Load(cfg, &env.Options{Source: dotenv.Layered{File: file}}); chk.E(err) {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	cfg.Profile = profile
	if !filepath.IsAbs(cfg.RelaysFile) {
		cfg.RelaysFile = filepath.Join(profile, cfg.RelaysFile)
	}
	return
}

// DefaultProfile is the working directory if it has a .env file, otherwise
// the nostrbird directory under the XDG config home.
func DefaultProfile() string {
	if wd, err := os.Getwd(); err == nil && FileExists(filepath.Join(wd, ".env")) {
		return wd
	}
	return filepath.Join(xdg.ConfigHome, AppName)
}

func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Require checks that the named keys have values. The error names the missing
// keys, never any value.
func (cfg *C) Require(keys ...string) (err error) {
	values := make(map[string]string)
	for _, kv := range keyvalue.EnvKV(*cfg) {
		values[kv.Key] = kv.Value
	}
	var missing []string
	for _, k := range keys {
		if values[k] == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set in the environment or %s",
			ErrConfig, strings.Join(missing, ", "), filepath.Join(cfg.Profile, ".env"))
	}
	return
}

// Relays reads the relay list file.
func (cfg *C) Relays() (relays []string, err error) {
	var f *os.File
	if f, err = os.Open(cfg.RelaysFile); err != nil {
		return nil, fmt.Errorf("%w: relay list: %w", ErrConfig, err)
	}
	defer f.Close()
	return ReadRelays(f)
}

// ReadRelays parses a relay list: one address per line, blank lines and lines
// starting with # are skipped. Addresses are normalized and duplicates
// dropped, keeping the first occurrence's position.
func ReadRelays(r io.Reader) (relays []string, err error) {
	seen := make(map[string]bool)
	sc := bufio.NewScanner(r)
	var n int
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var u string
		if u, err = normalize.URL(line); err != nil {
			return nil, fmt.Errorf("%w: relay list line %d: %w", ErrConfig, n, err)
		}
		if seen[u] {
			log.D.F("duplicate relay %s on line %d", u, n)
			continue
		}
		seen[u] = true
		relays = append(relays, u)
	}
	if err = sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: relay list: %w", ErrConfig, err)
	}
	if len(relays) == 0 {
		return nil, fmt.Errorf("%w: relay list is empty", ErrConfig)
	}
	return
}

// PrintEnv writes the configuration as a shell script, secrets redacted.
func (cfg *C) PrintEnv(w io.Writer) { keyvalue.PrintEnv(*cfg, w) }

// PrintHelp writes the environment variables that configure nostrbird.
func PrintHelp(cfg *C, w io.Writer) {
	_, _ = fmt.Fprintf(w, "\nenvironment variables that configure %s\n\n", AppName)
	env.Usage(cfg, w, nil)
	_, _ = fmt.Fprintf(w, `
commands:

  - read the filtered stream and publish every post to the relays

      %[1]s stream

  - list, create and delete the stream rule following an account

      %[1]s rules
      %[1]s create <account>
      %[1]s delete <account>

  - publish one text note to the relays

      %[1]s publish <text>

  - print environment variables as a shell script that can be edited to set the configuration

      %[1]s env

`, AppName)
}
