// Package api provides the HTTP API, the gated browser areas and the
// session event WebSocket for authgate.
//
// Routes under /api/v1 cover registration, login, the current account,
// logout, admin session revocation and health. The /dashboard and /admin
// areas sit behind the browser-mode request gate, which redirects instead
// of returning JSON errors.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
