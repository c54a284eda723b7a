package cli

import (
	"fmt"
	"os"
	"strings"
)

// Environment fallbacks for flags.
const (
	EnvTmpDir    = "WADTIK_TMP_DIR"
	EnvLogFormat = "WADTIK_LOG_FORMAT"
)

// Source indicates where a setting came from.
type Source string

const (
	// SourceCLI indicates the setting was set via CLI flag.
	SourceCLI Source = "cli"
	// SourceEnv indicates the setting was set via environment variable.
	SourceEnv Source = "env"
	// SourceDefault indicates the built-in default.
	SourceDefault Source = "default"
)

// determineTmpDir resolves the temp directory: --tmp, then WADTIK_TMP_DIR,
// then "" (next to each output file).
func determineTmpDir(cliValue string) (string, Source) {
	if cliValue != "" {
		return cliValue, SourceCLI
	}
	if v := os.Getenv(EnvTmpDir); v != "" {
		return v, SourceEnv
	}
	return "", SourceDefault
}

// determineHuman resolves the log format: --human, then WADTIK_LOG_FORMAT,
// then JSON.
func determineHuman(cliHuman bool) (bool, Source, error) {
	if cliHuman {
		return true, SourceCLI, nil
	}
	v := os.Getenv(EnvLogFormat)
	switch strings.ToLower(v) {
	case "":
		return false, SourceDefault, nil
	case "json":
		return false, SourceEnv, nil
	case "human", "pretty", "console":
		return true, SourceEnv, nil
	default:
		return false, "", fmt.Errorf("invalid %s %q: want json or human", EnvLogFormat, v)
	}
}
