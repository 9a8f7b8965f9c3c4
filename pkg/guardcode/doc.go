// Package guardcode generates Steam Guard mobile authenticator codes.
//
// A Steam Guard code is a time-based one-time password derived from the
// account's base64 encoded shared secret:
//
//   - HMAC-SHA1 over the big-endian 30 second time step
//   - dynamic truncation as in RFC 4226
//   - five symbols drawn from a 26 character alphabet without vowels
//     or easily confused glyphs
//
// Codes are a pure function of secret and wall-clock time.
package guardcode
