// Package migration applies versioned SQL schema changes to SQLite databases.
//
// Migrations are read from an fs.FS (usually an embed.FS compiled into the
// binary) and must be named {version}_{description}.sql, for example
// "001_initial_schema.sql". Each migration runs inside its own transaction
// and is recorded in the schema_migrations table so it is applied at most
// once.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewScanner(files, "migrations"), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.Run(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
