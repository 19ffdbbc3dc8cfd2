// Package vaultlog provides the core's diagnostic logging, limited to
// critical failure points: path errors, corruption, version mismatch,
// and verification failure. Nothing else in this module logs.
//
// Wires log/slog with hermannm.dev/devlog's handler for readable
// development-time output.
package vaultlog

import (
	"log/slog"
	"os"
	"sync"

	"hermannm.dev/devlog"
)

var (
	once    sync.Once
	logger  *slog.Logger
	logInit = func() {
		logger = slog.New(devlog.NewHandler(os.Stderr, nil))
	}
)

// Logger returns the package-wide diagnostic logger, initializing it on
// first use.
func Logger() *slog.Logger {
	once.Do(logInit)
	return logger
}

// PathError logs a failed path resolution during vault open.
func PathError(op, path string, err error) {
	Logger().Error("vault path error", "op", op, "path", path, "error", err)
}

// Corrupt logs a metadata or file-object corruption finding.
func Corrupt(op string, err error) {
	Logger().Error("vault corruption detected", "op", op, "error", err)
}

// VersionMismatch logs an incompatible on-disk ABI version.
func VersionMismatch(op string, err error) {
	Logger().Error("vault version mismatch", "op", op, "error", err)
}

// VerificationFailed logs an HMAC verification failure, with the fixed
// "invalid passphrase?" hint — the core cannot distinguish a wrong key
// from corruption, so it never claims to.
func VerificationFailed(op string) {
	Logger().Error("vault verification failed", "op", op, "hint", "invalid passphrase?")
}
