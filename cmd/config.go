package cmd

import (
	"os"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/opsdesk/dailyclose/pkg/app"
)

// loadConfigFromFile reads the service configuration, applying struct
// defaults first so the YAML file only needs the values that differ.
// Secrets never live in the file; they come from the environment
// (optionally via a .env file) after the YAML is applied.
func loadConfigFromFile(file string) (*app.Config, error) {
	if file == "" {
		file = "config.yaml"
	}

	config := &app.Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(file) //nolint:gosec // User-provided config file path
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	applyEnvOverrides(config)

	return config, nil
}

func applyEnvOverrides(config *app.Config) {
	// Missing .env is fine; the process environment may carry everything.
	_ = godotenv.Load()

	if v := os.Getenv("DAILYCLOSE_REDIS_URL"); v != "" {
		config.Redis.URL = v
	}
	if v := os.Getenv("DAILYCLOSE_SMTP_PASSWORD"); v != "" {
		config.Mail.Password = v
	}
	if v := os.Getenv("DAILYCLOSE_SMTP_USERNAME"); v != "" {
		config.Mail.Username = v
	}
	if v := os.Getenv("DAILYCLOSE_MINIO_ACCESS_KEY"); v != "" {
		config.FileStore.AccessKey = v
	}
	if v := os.Getenv("DAILYCLOSE_MINIO_SECRET_KEY"); v != "" {
		config.FileStore.SecretKey = v
	}
}
