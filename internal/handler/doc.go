// Package handler implements the HTTP API served in service mode.
//
// # Endpoints
//
//	GET  /api/topology   latest topology; ?format=json (default), yaml or text
//	GET  /api/adapters   registered discovery adapters
//	POST /api/discover   start a discovery run now (202 Accepted)
//
// Errors are returned as JSON with {error, details} and an appropriate
// status code. Until the first run has finished /api/topology answers 503.
package handler
