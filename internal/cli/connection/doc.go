// Package connection talks to the TradeGuard local API: request/response
// calls in the JSON envelope and the server-sent event stream.
package connection
