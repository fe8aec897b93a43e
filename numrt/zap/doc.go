// Package zap bridges the numrt/log abstraction to go.uber.org/zap.
//
// Loggers built here tee into the OpenTelemetry log bridge and stamp trace and
// span ids taken from the context, so bootstrap spans and log lines correlate.
package zap
