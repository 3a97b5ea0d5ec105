// Package tag provides standardized tag functions for structured logging.
//
// All tag keys use kebab-case naming convention for consistency.
// Use these functions instead of raw strings to ensure consistent
// and type-safe log output across the codebase.
package tag

import (
	"log/slog"
	"time"
)

// Error creates a tag for error objects.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// Env creates a tag for the target environment.
func Env(env string) slog.Attr {
	return slog.String("env", env)
}

// Kind creates a tag for fault kinds.
func Kind(kind string) slog.Attr {
	return slog.String("kind", kind)
}

// Action creates a tag for fault sub-actions.
func Action(action string) slog.Attr {
	return slog.String("action", action)
}

// Step creates a tag for builder steps.
func Step(name string) slog.Attr {
	return slog.String("step", name)
}

// Mode creates a tag for the experiment mode (one-shot or recurring).
func Mode(mode string) slog.Attr {
	return slog.String("mode", mode)
}

// Name creates a tag for experiment names.
func Name(name string) slog.Attr {
	return slog.String("name", name)
}

// Node creates a tag for physical node names.
func Node(name string) slog.Attr {
	return slog.String("node", name)
}

// Address creates a tag for node addresses.
func Address(addr string) slog.Attr {
	return slog.String("address", addr)
}

// Count creates a tag for counts.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Schedule creates a tag for cron expressions.
func Schedule(expr string) slog.Attr {
	return slog.String("schedule", expr)
}

// File creates a tag for file paths.
func File(path string) slog.Attr {
	return slog.String("file", path)
}

// Dir creates a tag for directory paths.
func Dir(path string) slog.Attr {
	return slog.String("dir", path)
}

// URL creates a tag for URLs.
func URL(url string) slog.Attr {
	return slog.String("url", url)
}

// Host creates a tag for listen hosts.
func Host(host string) slog.Attr {
	return slog.String("host", host)
}

// Port creates a tag for listen ports.
func Port(port int) slog.Attr {
	return slog.Int("port", port)
}

// Path creates a tag for request paths.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// NextRun creates a tag for upcoming schedule activations.
func NextRun(t time.Time) slog.Attr {
	return slog.Time("next-run", t)
}
