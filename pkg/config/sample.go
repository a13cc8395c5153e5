package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const sampleHeader = `# wirecall configuration
#
# Every key can be overridden with a WIRECALL_ environment variable,
# e.g. WIRECALL_SERVER_PORT=9000 or WIRECALL_LOGGING_LEVEL=DEBUG.

`

// WriteSample writes a commented sample configuration with default values to
// path, creating parent directories as needed. It refuses to overwrite an
// existing file unless force is set.
func WriteSample(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal sample config: %w", err)
	}

	out := append([]byte(sampleHeader), data...)
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
