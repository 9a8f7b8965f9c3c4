// Package handler implements the local API endpoints.
//
// Every command endpoint answers with the standard envelope whose data is
// the command's surface.Result; GET /v1/events streams notifications as
// server-sent events.
package handler
