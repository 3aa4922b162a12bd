package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration found at the root of fsys
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Migrate runs migrations over the pgx pool
func (db *PostgresDB) Migrate(ctx context.Context, fsys fs.FS) error {
	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer sqlDB.Close()
	return Migrate(ctx, sqlDB, fsys)
}

// Migrate runs migrations over the gorm connection pool
func (g *GormDB) Migrate(ctx context.Context, fsys fs.FS) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return Migrate(ctx, sqlDB, fsys)
}
