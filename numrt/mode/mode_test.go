//go:build unit

package mode

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/LerianStudio/lib-numrt/numrt/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupOf(value string, present bool) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if key != EnvName {
			return "", false
		}

		return value, present
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		present  bool
		expected bool
	}{
		{name: "Debug enables", raw: "Debug", present: true, expected: true},
		{name: "Asserts enables", raw: "Asserts", present: true, expected: true},
		{name: "lowercase debug enables", raw: "debug", present: true, expected: true},
		{name: "uppercase ASSERTS enables", raw: "ASSERTS", present: true, expected: true},
		{name: "Release disables", raw: "Release", present: true, expected: false},
		{name: "Profile disables", raw: "Profile", present: true, expected: false},
		{name: "empty disables", raw: "", present: true, expected: false},
		{name: "padded keyword disables", raw: " Debug", present: true, expected: false},
		{name: "prefix disables", raw: "Debugging", present: true, expected: false},
		{name: "unicode long s look-alike disables", raw: "Aſſerts", present: true, expected: false},
		{name: "mixed long s look-alike disables", raw: "ASSERTſ", present: true, expected: false},
		{name: "absent disables", raw: "", present: false, expected: false},
		{name: "absent ignores value", raw: "Debug", present: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, Parse(tt.raw, tt.present))
		})
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Debug, ParseKind("dEbUg"))
	assert.Equal(t, Asserts, ParseKind("asserts"))
	assert.Equal(t, Profile, ParseKind("PROFILE"))
	assert.Equal(t, Release, ParseKind("release"))
	assert.Equal(t, Unknown, ParseKind("fast"))
	assert.Equal(t, Unknown, ParseKind("Aſſerts"))
	assert.Equal(t, "Unknown", Kind(99).String())
}

func TestResolve_PrintsDecisionWhenGiven(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	m := Resolve(WithLookup(lookupOf("Debug", true)), WithOutput(&out))

	assert.True(t, m.AssertionsActive())
	assert.Equal(t, Debug, m.Kind())
	assert.Equal(t, "Assertion MODE='Debug' was given, therefore Asserts=true\n", out.String())

	raw, given := m.Raw()
	assert.Equal(t, "Debug", raw)
	assert.True(t, given)
}

func TestResolve_PrintsDecisionWhenAbsent(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	m := Resolve(WithLookup(lookupOf("", false)), WithOutput(&out))

	assert.False(t, m.AssertionsActive())
	assert.Equal(t, "Assertion MODE env var not given, thus Asserts=false\n", out.String())
}

func TestResolve_UnrecognisedValueIsOff(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	m := Resolve(WithLookup(lookupOf("Release", true)), WithOutput(&out))

	assert.False(t, m.AssertionsActive())
	assert.Contains(t, out.String(), "MODE='Release'")
	assert.Contains(t, out.String(), "Asserts=false")
}

type recordingLogger struct {
	log.NopLogger
	mu     sync.Mutex
	msgs   []string
	fields [][]log.Field
}

func (l *recordingLogger) Log(_ context.Context, _ log.Level, msg string, fields ...log.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.msgs = append(l.msgs, msg)
	l.fields = append(l.fields, fields)
}

func TestResolve_LogsDecision(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}

	Resolve(WithLookup(lookupOf("Asserts", true)), WithOutput(&bytes.Buffer{}), WithLogger(logger))

	require.Len(t, logger.msgs, 1)
	assert.Equal(t, "assertion mode resolved", logger.msgs[0])
	assert.Contains(t, logger.fields[0], log.Bool("asserts", true))
	assert.Contains(t, logger.fields[0], log.String("mode", "Asserts"))
}

func TestResolve_ReadsEnvironment(t *testing.T) {
	t.Setenv(EnvName, "Asserts")

	m := Resolve(WithOutput(&bytes.Buffer{}))
	assert.True(t, m.AssertionsActive())
}

func TestNilModeIsOff(t *testing.T) {
	t.Parallel()

	var m *Mode

	assert.False(t, m.AssertionsActive())
	assert.Equal(t, Unknown, m.Kind())

	raw, given := m.Raw()
	assert.Empty(t, raw)
	assert.False(t, given)
}

func TestNew(t *testing.T) {
	t.Parallel()

	assert.True(t, New(true).AssertionsActive())
	assert.False(t, New(false).AssertionsActive())
}

func resetProcessMode() {
	processMu.Lock()
	defer processMu.Unlock()

	processOnce = sync.Once{}
	processMode = nil
}

func TestInit_IsWriteOnce(t *testing.T) {
	resetProcessMode()
	t.Cleanup(resetProcessMode)

	assert.Nil(t, Current(), "mode is undefined before Init")

	var out bytes.Buffer

	first := Init(WithLookup(lookupOf("Debug", true)), WithOutput(&out))
	second := Init(WithLookup(lookupOf("Release", true)), WithOutput(&out))

	assert.Same(t, first, second)
	assert.True(t, Current().AssertionsActive())
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("\n")), "decision line is printed once")
}

func TestInit_ConcurrentReaders(t *testing.T) {
	resetProcessMode()
	t.Cleanup(resetProcessMode)

	Init(WithLookup(lookupOf("Asserts", true)), WithOutput(&bytes.Buffer{}))

	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.True(t, Current().AssertionsActive())
		}()
	}

	wg.Wait()
}
