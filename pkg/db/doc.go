// Package db connects to PostgreSQL and applies the schema gatehouse owns:
// the users table read by credential.Postgres and the sessions table used by
// session.PostgresStore.
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := db.Migrate(ctx, pool, cfg.MigrationsTable, log); err != nil {
//		return err
//	}
//
// Migrations are goose SQL files embedded in the binary (see Migrations).
package db
