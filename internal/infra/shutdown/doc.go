// Package shutdown coordinates graceful daemon shutdown.
//
// Components register named hooks as they start; on SIGINT, SIGTERM or
// Trigger the hooks run newest-first under a shared deadline.
package shutdown
