// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// HealthWait caps how long the worker waits for the ledger health check.
const HealthWait = 30 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Notify caps one outbound notification delivery request.
const Notify = 10 * time.Second

// NotifySink caps the in-line notification hand-off made while a request is
// submitted.
const NotifySink = 2 * time.Second
