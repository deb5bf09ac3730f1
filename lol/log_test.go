package lol

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, c, e := New(&buf)
	prev := Level.Load()
	defer Level.Store(prev)
	Level.Store(Warn)
	l.I.Ln("hidden")
	l.W.F("shown %d", 1)
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info line printed at warn level: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "shown 1") {
		t.Fatalf("warn line missing: %s", buf.String())
	}
	if !c.D(errors.New("x")) {
		t.Fatal("check must report a non-nil error even when filtered")
	}
	if c.E(nil) {
		t.Fatal("check must report false for nil")
	}
	err := e.E("wrapped: %w", errors.ErrUnsupported)
	if !errors.Is(err, errors.ErrUnsupported) {
		t.Fatal("errorf must wrap with %w")
	}
}

func TestGetLogLevel(t *testing.T) {
	for i, name := range LevelNames {
		if GetLogLevel(strings.ToUpper(name)) != i {
			t.Fatalf("level %s did not resolve to %d", name, i)
		}
	}
	if GetLogLevel("nonsense") != Info {
		t.Fatal("unknown level should fall back to info")
	}
}
