// Package cryptox derives credential digests.
package cryptox

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// DigestLength is the size in bytes of every digest returned by
// DigestCredential.
const DigestLength = 32

// DigestCredential derives a fixed-length one-way digest of credential under
// the process-wide salt. The same inputs always produce the same digest, which
// is what lets the account store look accounts up by (handle, digest).
//
// The salt is shared by every account, so equal credentials produce equal
// digests across accounts.
func DigestCredential(credential string, salt []byte) []byte {
	return argon2.IDKey([]byte(credential), salt, 1, 64*1024, 4, DigestLength)
}

// EqualDigest compares two digests in constant time.
func EqualDigest(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
