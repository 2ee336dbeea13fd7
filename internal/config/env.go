package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads KEY=value lines from path into the environment, replacing
// existing values. A missing file is not an error. Use for .env (keep .env out of git).
func LoadEnvFile(path string) error {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Overload(path)
}
