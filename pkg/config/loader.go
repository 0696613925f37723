package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const (
	EnvPrefix = "PEERHELP"
	// EnvConfigPath allows a custom config file location.
	EnvConfigPath = EnvPrefix + "_CONFIG_PATH"

	fileName = "config.yaml"
)

// LoadConfig loads a configuration file into the given struct.
// The path param specifies a custom path to the configuration file.
// Reads and puts environment variables with the prefix PEERHELP_.
// Params from the config should be in uppercase separated with _.
// It returns the path of the file that has been read or an empty string
// if none was found and only the defaults with env values were used.
func LoadConfig(config any, path string) (string, error) {
	dirs := searchDirs(path)
	err := fig.Load(config, fig.File(fileName), fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
	if errors.Is(err, fig.ErrFileNotFound) {
		return "", LoadConfigEnv(config)
	}
	if err != nil {
		return "", err
	}
	return findFile(dirs), nil
}

func LoadConfigEnv(config any) error {
	return fig.Load(config, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
}

func searchDirs(path string) []string {
	if path != "" {
		return []string{path}
	}
	dirs := []string{".", "configs", "../../configs"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".peerhelp"))
	}
	return dirs
}

func findFile(dirs []string) string {
	for _, dir := range dirs {
		f := filepath.Join(dir, fileName)
		if _, err := os.Stat(f); err == nil {
			if abs, err := filepath.Abs(f); err == nil {
				return abs
			}
			return f
		}
	}
	return ""
}

// plain container-style variables without the prefix
const (
	envAllowedOrigins = "ALLOWED_ORIGINS"
	envPort           = "PORT"
	envSessionTtl     = "SESSION_TTL_HOURS"
)

func envList(name string) ([]string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, false
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, len(out) > 0
}

func envInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func envHours(name string) (time.Duration, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || h <= 0 {
		return 0, false
	}
	return time.Duration(h * float64(time.Hour)), true
}

func dirOf(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Dir(path)
}
