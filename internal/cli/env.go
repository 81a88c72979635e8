package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFileOverride names the variable that points at an explicit .env file.
// It wins over the --env flag.
const EnvFileOverride = "CURATOR_ENV_FILE"

var ErrNoEnvFile = errors.New("no env file loaded")

// EnvLoader loads .env files with a predictable override order:
// CURATOR_ENV_FILE, then --env, then its basename, then the default.
type EnvLoader struct {
	value       *string
	defaultPath string
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	return &EnvLoader{
		value:       fs.String("env", defaultPath, description),
		defaultPath: defaultPath,
	}
}

// Load overloads the process environment from the first readable candidate
// and returns its path. Values in the file replace existing variables.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	var failed []string
	if custom := strings.TrimSpace(os.Getenv(EnvFileOverride)); custom != "" {
		if err := godotenv.Overload(custom); err == nil {
			return custom, nil
		}
		failed = append(failed, EnvFileOverride+"="+custom)
	}

	for _, candidate := range l.candidates() {
		if err := godotenv.Overload(candidate); err == nil {
			return candidate, nil
		}
		failed = append(failed, candidate)
	}

	return "", fmt.Errorf("%w (tried %s)", ErrNoEnvFile, strings.Join(failed, ", "))
}

func (l *EnvLoader) candidates() []string {
	requested := l.defaultPath
	if l.value != nil && strings.TrimSpace(*l.value) != "" {
		requested = strings.TrimSpace(*l.value)
	}

	out := []string{requested}
	if base := filepath.Base(requested); base != "" && base != requested {
		out = append(out, base)
	}
	if requested != l.defaultPath {
		out = append(out, l.defaultPath)
	}
	return out
}
