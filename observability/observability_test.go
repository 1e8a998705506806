package observability

import (
	"bytes"
	"strings"
	"testing"
)

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewTextLogger(&buf, false)
	log.Info("page synthesized", Int("record", 3), String("field", "URL"))
	log.Debug("hidden", Int("x", 1))
	out := buf.String()
	if !strings.Contains(out, "INFO page synthesized record=3 field=URL") {
		t.Fatalf("got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatal("debug line emitted without debug enabled")
	}
}

func TestTextLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewTextLogger(&buf, true).With(String("run", "abc"))
	log.Debug("start")
	if !strings.Contains(buf.String(), "DEBUG start run=abc") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestNopLogger(t *testing.T) {
	var log Logger = NopLogger{}
	log.Info("nothing")
	if _, ok := log.With(Int("a", 1)).(NopLogger); !ok {
		t.Fatal("With should stay a NopLogger")
	}
}
