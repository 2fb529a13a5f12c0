// Package backend provides the CounselDesk API server.

// This package contains no code of its own. The server is organized into
// subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/auth: Google and case-management OAuth flows
// - internal/session: signed session tokens carrying the Google identity
// - internal/google: Calendar, Tasks, and Gmail API clients
// - internal/clio: case-management provider API client
// - internal/feed: unified week feed aggregation
// - internal/dashboard: KPI counts, paged matters/tasks, notifications
// - internal/chat: practice assistant backed by Gemini
// - internal/middleware: sessions, rate limiting, logging, metrics
// - internal/cache: Redis wrapper for rate-limit counters
// - internal/telemetry: OpenTelemetry tracing

// See the individual package documentation for detailed API reference.
package backend
