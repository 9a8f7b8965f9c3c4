// Package domain defines the core domain models for TradeGuard.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - Session: the single logical authenticated connection and its state
//   - TradeOffer / ItemRef: pending proposals from remote parties
//   - AuthenticatorRecord: locally stored Steam Guard secrets
//   - Event: notifications delivered to the UI collaborator
//   - Errors: the structured error taxonomy shared by every component
package domain
