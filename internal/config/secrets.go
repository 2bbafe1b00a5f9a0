package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const defaultSecretsPath = "/var/run/secrets/tado"

// Secret file names inside the secrets directory.
const (
	secretUsername       = "username"
	secretPassword       = "password"
	secretMQTTPassword   = "mqtt_password"
	secretInfluxToken    = "influxdb_token"
	secretOpenWeatherKey = "openweather_key"
)

// readSecrets reads every known secret file from the mounted secrets
// directory. Missing files and a missing directory are not errors; the
// returned map only holds the secrets that were found.
func readSecrets() (map[string]string, error) {
	dir := os.Getenv("TADO_SECRETS_PATH")
	if dir == "" {
		dir = defaultSecretsPath
	}

	found := make(map[string]string)
	for _, name := range []string{secretUsername, secretPassword, secretMQTTPassword, secretInfluxToken, secretOpenWeatherKey} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			found[name] = v
		}
	}
	return found, nil
}

// applySecrets overrides configuration with mounted secrets. Credentials
// are only replaced as a pair.
func applySecrets(cfg *Config, secrets map[string]string) {
	username, password := secrets[secretUsername], secrets[secretPassword]
	if username != "" && password != "" {
		cfg.Username = username
		cfg.Password = password
	}
	if v, ok := secrets[secretMQTTPassword]; ok {
		cfg.MQTT.Auth.Password = v
	}
	if v, ok := secrets[secretInfluxToken]; ok {
		cfg.InfluxDB.Token = v
	}
	if v, ok := secrets[secretOpenWeatherKey]; ok {
		cfg.ExtendedWeather.Key = v
	}
}
