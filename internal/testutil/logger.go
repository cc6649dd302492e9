// Package testutil holds helpers shared across package tests.
package testutil

import (
	"log/slog"
	"os"
)

// Logger returns a logger for tests that stays quiet unless something errors
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
