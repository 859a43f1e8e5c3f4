// Package database provides SQLite connectivity for gateway persistence files.
//
// Each Domintell gateway keeps its node table in its own SQLite file
// (domintell1.db, domintell2.db, ...). This package opens those files
// with WAL mode and a busy timeout, and applies the embedded schema
// migrations to them.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{
//	    Path:        gw.PersistenceFile,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive; each file pair is YYYYMMDD_HHMMSS_name.up.sql
// and .down.sql. Database files are created with 0600 permissions.
package database
