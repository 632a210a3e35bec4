package command

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func TestWarnfThrottlesPerKey(t *testing.T) {
	buf := captureLog(t)

	now := time.Unix(0, 0)
	w := NewWarnThrottle(5 * time.Second)
	w.now = func() time.Time { return now }

	w.Warnf("k", "first")
	w.Warnf("k", "suppressed")
	now = now.Add(6 * time.Second)
	w.Warnf("k", "second")

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\n"))
	assert.Contains(t, out, "first")
	assert.NotContains(t, out, "suppressed")
	assert.Contains(t, out, "second")
}

func TestWarnfKeysAreIndependent(t *testing.T) {
	buf := captureLog(t)

	w := NewWarnThrottle(time.Hour)
	w.Warnf("a", "alpha")
	w.Warnf("b", "beta")

	out := buf.String()
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")
}

func TestOncefEmitsExactlyOnce(t *testing.T) {
	buf := captureLog(t)

	w := NewWarnThrottle(time.Nanosecond)
	w.Oncef("vendor", "fallback engaged")
	w.Oncef("vendor", "fallback engaged")
	w.Oncef("vendor", "fallback engaged")

	assert.Equal(t, 1, strings.Count(buf.String(), "fallback engaged"))
}
