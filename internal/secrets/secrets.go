package secrets

import (
	"log/slog"
	"os"
)

// Resolver maps a configuration-declared variable name to its runtime
// value. Absence is the normal "not configured" signal; callers treat
// it as "skip this source or target".
type Resolver interface {
	Resolve(name string) (string, bool)
}

// EnvResolver resolves secrets from the process environment.
type EnvResolver struct {
	logger *slog.Logger
}

// NewEnvResolver creates an environment-backed resolver.
func NewEnvResolver(logger *slog.Logger) *EnvResolver {
	return &EnvResolver{logger: logger}
}

// Resolve looks up the named environment variable. An empty name or an
// unset variable yields a warning and (_, false); it never errors.
func (r *EnvResolver) Resolve(name string) (string, bool) {
	if name == "" {
		r.logger.Warn("environment variable name not specified in config")
		return "", false
	}
	value := os.Getenv(name)
	if value == "" {
		r.logger.Warn("environment variable not found or empty", "env_var", name)
		return "", false
	}
	return value, true
}
