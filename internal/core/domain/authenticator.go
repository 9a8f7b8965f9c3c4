// Package domain defines the core domain models for TradeGuard.
package domain

// AuthenticatorRecord is a locally stored Steam Guard authenticator.
// The shared secret never leaves the process in serialised form.
type AuthenticatorRecord struct {
	Filename     string `json:"filename"`
	AccountName  string `json:"account_name"`
	SteamID      string `json:"steam_id,omitempty"`
	DeviceID     string `json:"device_id,omitempty"`
	SharedSecret string `json:"-"`
}
