/*
Package httpserver serves a provisioned graffiti wall demo over HTTP.

It exposes two surfaces on a single listener:

 1. Deployment API - read-only identifiers of the provisioned deployment
 2. Static frontend - the demo's frontend tree with index.html fallback

# Endpoints

  - GET /api/v1/deployment - program pubkey, wall account pubkey, network and RPC URL as JSON
  - GET /livez, GET /readyz - health probes
  - POST /drain, POST /undrain - readiness toggling for rolling restarts
  - GET /* - static frontend files, unknown paths fall back to index.html

The deployment info is read once at startup from the demo's frontend env
file; re-provisioning requires a server restart.

# Lifecycle

The server runs in a background goroutine (RunInBackground) and stops
gracefully within the configured shutdown window (Shutdown). Draining marks
the server not ready so load balancers stop routing to it and keeps serving
in-flight requests through the drain window.
*/
package httpserver
