package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the working directory or its parent into the
// process environment. Variables already set are not overridden. It returns
// the file it loaded, or "" when none exists.
func LoadEnv() (string, error) {
	candidates := []string{".env", filepath.Join("..", ".env")}
	for _, envFile := range candidates {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			return envFile, err
		}
		return envFile, nil
	}
	return "", nil
}
