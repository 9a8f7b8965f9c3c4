// Package token generates local API bearer tokens and verifies them against
// argon2id hashes.
//
// Only the hash is kept in configuration (api.token_hash). Hashes use the
// PHC string format:
//
//	$argon2id$v=19$m=65536,t=1,p=2$<salt>$<key>
//
// with salt and key in unpadded standard base64.
package token
