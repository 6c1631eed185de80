// Package db opens the PostgreSQL pool behind the mail records, the template
// store and the River job queue, and applies embedded goose migrations.
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//	if err := db.Migrate(ctx, pool, repository.Migrations, cfg.MigrationsTable, log); err != nil {
//	    return err
//	}
package db
