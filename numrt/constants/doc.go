// Package constant holds names shared across numrt packages: environment
// variables, telemetry metric and event names, and span names.
package constant
