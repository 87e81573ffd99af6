// Package database provides SQLite connectivity for authgate's user store
// and audit trail.
//
// This package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Applying versioned, embedded schema migrations
//   - Health checks for the /health endpoint
//
// All queries use parameterised statements. The database file is created
// with 0600 permissions since it holds password hashes.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql.
package database
