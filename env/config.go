// Package env reads KEY=value files for use as a go-simpler.org/env Source.
package env

import (
	"os"
	"strings"

	"nostrbird.lol/chk"
	"nostrbird.lol/errorf"
)

// Env is a key/value map used to represent environment variables. This is
// implemented for go-simpler.org library.
type Env map[string]string

// GetEnv reads a file of KEY=value lines in shell environment variable
// format. Blank lines and lines starting with # are skipped, an optional
// leading "export " is dropped and a value wrapped in matching quotes is
// unquoted.
func GetEnv(path string) (env Env, err error) {
	var s []byte
	env = make(Env)
	if s, err = os.ReadFile(path); chk.T(err) {
		return
	}
	for i, line := range strings.Split(string(s), "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			// the line may hold a secret, so only its position is reported
			err = errorf.D("%s: line %d is not KEY=value", path, i+1)
			return
		}
		env[key] = unquote(strings.TrimSpace(value))
	}
	return
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// LookupEnv returns the raw string value associated with a provided key name,
// used as a custom environment variable loader for go-simpler.org/env to enable
// .env file loading.
func (env Env) LookupEnv(key string) (value string, ok bool) {
	value, ok = env[key]
	return
}

// Layered looks a key up in the process environment first and falls back to
// File.
type Layered struct {
	File Env
}

func (l Layered) LookupEnv(key string) (value string, ok bool) {
	if value, ok = os.LookupEnv(key); ok {
		return
	}
	return l.File.LookupEnv(key)
}
