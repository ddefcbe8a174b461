// Package credential looks up stored user credentials for the authentication gate.
//
// A [Provider] returns a [Record] holding the password hash and the identity
// fields of a user. The gate stores the value of the provider's [Provider.Key]
// field in the session once a login succeeds.
//
// Implementations:
//   - [Static]: fixed in-memory records, for tests and single-admin setups
//   - [GORM]: a gorm.io model, any gorm dialect
//   - [Postgres]: the "users" table created by the pkg/db migrations, via pgx
package credential
