// Package password hashes and verifies user passwords and checks their strength.
//
// [Hasher] produces argon2id hashes in PHC string format and verifies both
// argon2id and bcrypt hashes, so credential stores migrated from bcrypt keep
// working. [NeedsRehash] reports hashes that should be replaced on next login.
//
//	h := password.NewHasher()
//	encoded, err := h.Hash("correct horse battery staple")
//	ok, err := h.Verify("correct horse battery staple", encoded)
//
// [Strength] is a configurable strength predicate used by the authentication
// gate's advisory password policy.
package password
