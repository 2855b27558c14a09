// Package httpserver provides a reusable HTTP server implementation for the
// settlement engine's API surface.
//
// The httpserver package implements a base HTTP server with standard health
// endpoints, graceful shutdown capabilities and flexible routing. Handlers
// register their routes through the RouteRegistrar interface.
//
// # Server Lifecycle
//
//  1. Initialization: Configure server with HTTP settings and route registrars
//  2. Startup: Run the HTTP server in a background goroutine
//  3. Operation: Handle requests with structured request logging
//  4. Readiness Control: Support drain/undrain operations for load balancers
//  5. Graceful Shutdown: Wait for in-flight requests to complete
//
// # Health and Diagnostics
//
// All servers built with BaseServer automatically include:
//
//   - Liveness Check: Simple endpoint to verify server is running (/livez)
//   - Readiness Check: Endpoint indicating if server is ready (/readyz)
//   - Drain Control: Endpoints to prepare for graceful shutdown (/drain, /undrain)
//   - Profiling: Optional pprof debugging endpoints when enabled
package httpserver
