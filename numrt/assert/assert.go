package assert

import (
	"context"
	"fmt"
	"io"
	"os"
	goruntime "runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	constant "github.com/LerianStudio/lib-numrt/numrt/constants"
	"github.com/LerianStudio/lib-numrt/numrt/log"
	"github.com/LerianStudio/lib-numrt/numrt/mode"
)

// DefaultPrecision is the number of digits printed after the point for floats.
const DefaultPrecision = 20

const logSyncTimeout = 2 * time.Second

// terminating serialises failure reports so concurrent failures never
// interleave their output. The process normally exits while holding it; an
// injected exit that returns releases it through terminate's deferred Unlock.
var terminating sync.Mutex

// Reporter evaluates checks against the resolved mode.
type Reporter struct {
	mode       *mode.Mode
	ctx        context.Context
	out        io.Writer
	logger     log.Logger
	precision  int
	exit       func(int)
	component  string
	callerSkip int
	counter    metric.Int64Counter
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithOutput replaces stderr as the report destination.
func WithOutput(w io.Writer) Option {
	return func(r *Reporter) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger records failures on a structured logger as well.
func WithLogger(logger log.Logger) Option {
	return func(r *Reporter) {
		r.logger = logger
	}
}

// WithPrecision sets the digits printed after the point for float values.
func WithPrecision(precision int) Option {
	return func(r *Reporter) {
		if precision >= 0 {
			r.precision = precision
		}
	}
}

// WithExit replaces os.Exit. The function must not return; if it does, the
// reporter panics with a *TerminationError.
func WithExit(exit func(int)) Option {
	return func(r *Reporter) {
		if exit != nil {
			r.exit = exit
		}
	}
}

// WithComponent labels failures in logs and telemetry.
func WithComponent(component string) Option {
	return func(r *Reporter) {
		r.component = component
	}
}

// WithContext sets the context whose span receives failure events.
func WithContext(ctx context.Context) Option {
	return func(r *Reporter) {
		if ctx != nil {
			r.ctx = ctx
		}
	}
}

// WithMeter selects the meter for the assertion_failed_total counter.
func WithMeter(meter metric.Meter) Option {
	return func(r *Reporter) {
		if meter != nil {
			r.counter = newFailureCounter(meter)
		}
	}
}

// WithCallerSkip adds frames to skip when locating the failed check, for
// helpers that wrap the reporter.
func WithCallerSkip(skip int) Option {
	return func(r *Reporter) {
		if skip > 0 {
			r.callerSkip = skip
		}
	}
}

// New creates a Reporter bound to a resolved mode. A nil mode means checks are off.
func New(m *mode.Mode, opts ...Option) *Reporter {
	r := &Reporter{
		mode:      m,
		ctx:       context.Background(),
		out:       os.Stderr,
		precision: DefaultPrecision,
		exit:      os.Exit,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.counter == nil {
		r.counter = newFailureCounter(otel.GetMeterProvider().Meter(constant.TelemetrySDKName))
	}

	return r
}

func newFailureCounter(meter metric.Meter) metric.Int64Counter {
	counter, err := meter.Int64Counter(
		constant.MetricAssertionFailedTotal,
		metric.WithUnit("1"),
		metric.WithDescription("Total number of failed assertions"),
	)
	if err != nil {
		return nil
	}

	return counter
}

// Active reports whether checks are enforced. Use it to guard setup that only
// exists to feed a check.
func (r *Reporter) Active() bool {
	return r != nil && r.mode.AssertionsActive()
}

// That terminates the process when ok is false and checks are enforced.
func (r *Reporter) That(ok bool, expr string, fields ...Field) {
	if ok || !r.Active() {
		return
	}

	r.failure(1, KindThat, expr, nil, fields)
}

// Fail reports and terminates regardless of the mode. Use it on code paths
// that must be unreachable.
func (r *Reporter) Fail(msg string, fields ...Field) {
	if r == nil {
		r = New(nil)
	}

	r.failure(1, KindFail, msg, nil, fields)
}

// Equals terminates when lhs != rhs and checks are enforced.
func Equals[T comparable](r *Reporter, lhs, rhs T, expr string, fields ...Field) {
	if !r.Active() || lhs == rhs {
		return
	}

	r.failure(1, KindEquals, expr, []any{lhs, rhs}, fields)
}

// EqualsFunc is Equals for types whose equality is defined by eq.
func EqualsFunc[T any](r *Reporter, lhs, rhs T, eq func(a, b T) bool, expr string, fields ...Field) {
	if !r.Active() || eq(lhs, rhs) {
		return
	}

	r.failure(1, KindEquals, expr, []any{lhs, rhs}, fields)
}

// NumericalEquals terminates when lhs and rhs are not close under tol. A nil
// tol uses DefaultTolerance.
func NumericalEquals[F Float](r *Reporter, lhs, rhs F, tol Tolerance, expr string, fields ...Field) {
	if !r.Active() {
		return
	}

	if tol == nil {
		tol = DefaultTolerance
	}

	if tol(float64(lhs), float64(rhs)) {
		return
	}

	r.failure(1, KindNumericalEquals, expr, []any{lhs, rhs}, fields)
}

// VectorNumericalEquals compares two vectors component by component. The
// first component that is not close terminates the process; its index is
// reported as the field "component" ahead of the caller's fields.
func VectorNumericalEquals[F Float](r *Reporter, lhs, rhs []F, tol Tolerance, expr string, fields ...Field) {
	if !r.Active() {
		return
	}

	if len(lhs) != len(rhs) {
		sized := make([]Field, 0, len(fields)+2)
		sized = append(sized, Value("lhs_len", len(lhs)), Value("rhs_len", len(rhs)))
		r.failure(1, KindVectorEquals, expr, []any{lhs, rhs}, append(sized, fields...))

		return
	}

	if tol == nil {
		tol = DefaultTolerance
	}

	for d := range lhs {
		if tol(float64(lhs[d]), float64(rhs[d])) {
			continue
		}

		indexed := make([]Field, 0, len(fields)+1)
		indexed = append(indexed, Value("component", d))
		r.failure(1, KindVectorEquals, expr, []any{lhs[d], rhs[d]}, append(indexed, fields...))

		return
	}
}

// failure builds the report for the check depth frames above it and
// terminates. It never returns.
func (r *Reporter) failure(depth int, kind Kind, expr string, operands []any, fields []Field) {
	rep := &Report{Kind: kind, Expression: expr}

	if _, file, line, ok := goruntime.Caller(depth + 1 + r.callerSkip); ok {
		rep.Location = Location{File: file, Line: line}
	}

	if len(operands) == 2 {
		rep.Operands = []RenderedField{
			{Name: "lhs", Value: render(operands[0], r.precision)},
			{Name: "rhs", Value: render(operands[1], r.precision)},
		}
	}

	for _, f := range fields {
		if f.explanation {
			rep.Explanation = render(f.value, r.precision)
			continue
		}

		rep.Fields = append(rep.Fields, RenderedField{Name: f.name, Value: render(f.resolve(), r.precision)})
	}

	r.terminate(rep)
}

func (r *Reporter) terminate(rep *Report) {
	terminating.Lock()
	defer terminating.Unlock()

	fmt.Fprint(r.out, rep.String())

	r.logFailure(rep)
	r.recordObservability(rep)
	r.flush()

	r.exit(ExitCode)

	panic(&TerminationError{Code: ExitCode, Report: rep})
}

func (r *Reporter) logFailure(rep *Report) {
	if r.logger == nil {
		return
	}

	fields := make([]log.Field, 0, 5+len(rep.Fields))
	fields = append(fields,
		log.String("assertion", string(rep.Kind)),
		log.String("expression", rep.Expression),
		log.String("file", rep.Location.File),
		log.Int("line", rep.Location.Line),
	)

	if r.component != "" {
		fields = append(fields, log.String("component", r.component))
	}

	for _, f := range rep.Fields {
		fields = append(fields, log.String("param."+f.Name, f.Value))
	}

	r.logger.Log(r.ctx, log.LevelError, "ASSERTION FAILED", fields...)
}

func (r *Reporter) recordObservability(rep *Report) {
	if r.counter != nil {
		r.counter.Add(r.ctx, 1, metric.WithAttributes(
			attribute.String("component", constant.SanitizeMetricLabel(r.component)),
			attribute.String("assertion", string(rep.Kind)),
		))
	}

	span := trace.SpanFromContext(r.ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(constant.AttrPrefixAssertion+"name", string(rep.Kind)),
		attribute.String(constant.AttrPrefixAssertion+"expression", rep.Expression),
		attribute.String(constant.AttrPrefixAssertion+"file", rep.Location.File),
		attribute.Int(constant.AttrPrefixAssertion+"line", rep.Location.Line),
	}

	if r.component != "" {
		attrs = append(attrs, attribute.String(constant.AttrPrefixAssertion+"component", r.component))
	}

	span.AddEvent(constant.EventAssertionFailed, trace.WithAttributes(attrs...))
	span.RecordError(fmt.Errorf("%w: %s", ErrAssertionFailed, rep.Expression))
	span.SetStatus(codes.Error, "assertion failed")
}

type syncer interface{ Sync() error }

type flusher interface{ Flush() error }

// flush pushes the report and any pending status output out before exit.
func (r *Reporter) flush() {
	if r.logger != nil {
		ctx, cancel := context.WithTimeout(context.Background(), logSyncTimeout)
		_ = r.logger.Sync(ctx)

		cancel()
	}

	switch w := r.out.(type) {
	case flusher:
		_ = w.Flush()
	case syncer:
		_ = w.Sync()
	}

	_ = os.Stdout.Sync()
	_ = os.Stderr.Sync()
}
