package testutil

import (
	"bytes"
	"log/slog"
)

// CaptureLogger returns a debug-level text logger writing into the returned
// buffer so tests can assert on log output.
func CaptureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
