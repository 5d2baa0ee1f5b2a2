package ginternals

import "github.com/Nivl/git-go/ginternals/githash"

// Oid represents a git Object ID.
//
// The object database is built around a single hash algorithm at a
// time (SHA-1 by default, see ginternals/githash for the pluggable
// abstraction used by repositories that opt into SHA-256). The
// package-level helpers below always operate against the default
// SHA-1 algorithm, since every object/reference parsed through this
// package (as opposed to through a specific Backend) is assumed to
// belong to a SHA-1 repository.
type Oid = githash.Oid

// defaultHash is the hash algorithm used by the package-level Oid
// helpers below.
var defaultHash githash.Hash = githash.NewSHA1() //nolint:gochecknoglobals // treated as a const

// NullOid represents an empty/unset Oid
var NullOid = defaultHash.NullOid() //nolint:gochecknoglobals // treated as a const

// NewOidFromContent returns the Oid corresponding to the sum of the
// given content
func NewOidFromContent(content []byte) Oid {
	return defaultHash.Sum(content)
}

// NewOidFromStr returns an Oid from its hex string representation
// Ex: "9b91da06e69613397b38e0808e0ba5ee6983251b"
func NewOidFromStr(id string) (Oid, error) {
	return defaultHash.ConvertFromString(id)
}

// NewOidFromChars returns an Oid from the given hex-encoded char bytes
// Ex: {'9', 'b', '9', '1', 'd', 'a', ...}
func NewOidFromChars(id []byte) (Oid, error) {
	return defaultHash.ConvertFromChars(id)
}

// NewOidFromHex returns an Oid from its raw (binary) byte representation
// Despite its name, this does NOT take a hex string, it takes the raw
// bytes that compose an Oid (ex. the 20 raw bytes of a SHA-1 tree entry)
func NewOidFromHex(id []byte) (Oid, error) {
	return defaultHash.ConvertFromBytes(id)
}
