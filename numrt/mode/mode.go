package mode

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	constant "github.com/LerianStudio/lib-numrt/numrt/constants"
	"github.com/LerianStudio/lib-numrt/numrt/log"
)

// EnvName is the environment variable consulted by Resolve.
const EnvName = constant.EnvMode

// Kind is one of the documented MODE values.
type Kind int

const (
	Unknown Kind = iota
	Debug
	Asserts
	Profile
	Release
)

// String returns the canonical spelling of the kind.
func (k Kind) String() string {
	switch k {
	case Debug:
		return "Debug"
	case Asserts:
		return "Asserts"
	case Profile:
		return "Profile"
	case Release:
		return "Release"
	default:
		return "Unknown"
	}
}

// EnablesAssertions reports whether the kind turns enforcement on.
func (k Kind) EnablesAssertions() bool {
	return k == Debug || k == Asserts
}

// ParseKind matches raw against the documented values, ignoring ASCII case
// only. Non-ASCII look-alikes never match.
func ParseKind(raw string) Kind {
	for _, k := range []Kind{Debug, Asserts, Profile, Release} {
		if asciiEqualFold(raw, k.String()) {
			return k
		}
	}

	return Unknown
}

func asciiEqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := 0; i < len(a); i++ {
		if asciiLower(a[i]) != asciiLower(b[i]) {
			return false
		}
	}

	return true
}

func asciiLower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}

	return c
}

// Parse derives the enforcement flag from a raw signal value.
func Parse(raw string, present bool) bool {
	if !present {
		return false
	}

	return ParseKind(raw).EnablesAssertions()
}

// Mode is the resolved, immutable enforcement decision.
type Mode struct {
	raw     string
	given   bool
	kind    Kind
	asserts bool
}

// New builds a Mode with an explicit decision. Intended for tests and for
// embedders that take the decision from somewhere other than the environment.
func New(assertionsActive bool) *Mode {
	return &Mode{asserts: assertionsActive}
}

// AssertionsActive reports whether diagnostic checks are enforced. A nil Mode
// reads as off.
func (m *Mode) AssertionsActive() bool {
	return m != nil && m.asserts
}

// Kind returns the parsed MODE value.
func (m *Mode) Kind() Kind {
	if m == nil {
		return Unknown
	}

	return m.kind
}

// Raw returns the raw signal value and whether it was present at all.
func (m *Mode) Raw() (string, bool) {
	if m == nil {
		return "", false
	}

	return m.raw, m.given
}

// Option configures Resolve.
type Option func(*resolver)

type resolver struct {
	lookup func(string) (string, bool)
	out    io.Writer
	logger log.Logger
}

// WithLookup replaces os.LookupEnv.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(r *resolver) {
		if lookup != nil {
			r.lookup = lookup
		}
	}
}

// WithOutput replaces stdout as the destination of the decision line.
func WithOutput(w io.Writer) Option {
	return func(r *resolver) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger also records the decision on a structured logger.
func WithLogger(logger log.Logger) Option {
	return func(r *resolver) {
		r.logger = logger
	}
}

// Resolve reads the MODE signal and prints the decision line. It has no error
// path: every input resolves to a boolean.
func Resolve(opts ...Option) *Mode {
	r := &resolver{lookup: os.LookupEnv, out: os.Stdout}
	for _, opt := range opts {
		opt(r)
	}

	raw, given := r.lookup(EnvName)

	m := &Mode{
		raw:     raw,
		given:   given,
		kind:    ParseKind(raw),
		asserts: Parse(raw, given),
	}

	if given {
		fmt.Fprintf(r.out, "Assertion MODE='%s' was given, therefore Asserts=%t\n", raw, m.asserts)
	} else {
		fmt.Fprintf(r.out, "Assertion MODE env var not given, thus Asserts=%t\n", m.asserts)
	}

	if r.logger != nil {
		r.logger.Log(context.Background(), log.LevelInfo, "assertion mode resolved",
			log.String("mode", raw),
			log.Bool("given", given),
			log.Bool("asserts", m.asserts),
		)
	}

	return m
}

var (
	processOnce sync.Once
	processMode *Mode
	processMu   sync.RWMutex
)

// Init resolves the process-wide mode exactly once. Later calls ignore their
// options and return the first result; the environment is never re-read.
func Init(opts ...Option) *Mode {
	processOnce.Do(func() {
		m := Resolve(opts...)

		processMu.Lock()
		processMode = m
		processMu.Unlock()
	})

	return Current()
}

// Current returns the process-wide mode, or nil before Init has run.
func Current() *Mode {
	processMu.RLock()
	defer processMu.RUnlock()

	return processMode
}
