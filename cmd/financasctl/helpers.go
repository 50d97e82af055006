package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"financas/internal/storage"
)

func dbPath() string {
	return viper.GetString("database.path")
}

// openStore opens the SQLite store, applying any pending migrations.
func openStore() (*storage.SQLiteStore, error) {
	path := dbPath()
	if path == "" {
		return nil, errors.New("database path is empty; pass --db or set FINANCAS_DATABASE_PATH")
	}
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return store, nil
}

func closeStore(store *storage.SQLiteStore) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

// lookupUser resolves an account by email.
func lookupUser(ctx context.Context, store *storage.SQLiteStore, email string) (storage.UserRecord, error) {
	if email == "" {
		return storage.UserRecord{}, errors.New("--user is required")
	}
	u, err := store.FindUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		return storage.UserRecord{}, fmt.Errorf("no account for %s", email)
	}
	return u, err
}
