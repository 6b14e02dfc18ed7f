// Package license implements the offline license authority for ZapCatalog.
//
// There is no license server: a key carries everything needed to re-verify it
// locally. The key format is
//
//	<EXPIRATION_HEX>-<12_HEX_CHARS>
//
// entirely uppercase at rest, where EXPIRATION_HEX is the Unix-epoch
// milliseconds expiration instant in hexadecimal and the second segment is a
// truncated SHA-256 digest over (email, expiration, shared secret). Binding
// the signature to the email prevents casual key sharing; embedding the
// expiration inside the key removes the need for any revocation or expiry
// store.
//
// Verification is pure and idempotent. It never panics and never returns a
// Go error to its caller: every failure mode is folded into the VerifyResult
// value, distinguishing malformed keys, signature mismatches and expiry so
// the UI can surface each state differently.
package license
