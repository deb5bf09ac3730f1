package keyvalue

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name    string        `env:"NAME"`
	Token   string        `env:"TOKEN" secret:"true"`
	Unset   string        `env:"UNSET" secret:"true"`
	Timeout time.Duration `env:"TIMEOUT"`
	On      bool          `env:"ON"`
	Hosts   []string      `env:"HOSTS"`
	skipped string
}

func TestPrintEnv(t *testing.T) {
	var buf bytes.Buffer
	PrintEnv(sample{
		Name: "bird", Token: "hunter2", Timeout: 3 * time.Second, On: true,
		Hosts: []string{"a", "b"},
	}, &buf)
	assert.Equal(t, "#!/usr/bin/env bash\n"+
		"export HOSTS=a,b\n"+
		"export NAME=bird\n"+
		"export ON=true\n"+
		"export TIMEOUT=3s\n"+
		"export TOKEN=<redacted>\n"+
		"export UNSET=\n", buf.String())
	assert.NotContains(t, buf.String(), "hunter2")
}
