// Package telemetry provides the tracing and metrics hooks used by the cart
// service and the transports. Both default to no-op implementations; the
// OpenTelemetry and Prometheus implementations are opt-in.
package telemetry
