package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// API key environment variables, checked in order. PMT_API_KEY wins so the
// tool can coexist with other OpenAI-compatible tooling in the same shell.
var apiKeyVars = []string{"PMT_API_KEY", "OPENAI_API_KEY"}

// LoadAPIKey returns the configured API key. A .env file in the working
// directory is loaded first, without overriding variables already set in
// the environment. A missing key is a fatal *Error.
func LoadAPIKey() (string, error) {
	_ = godotenv.Load()

	for _, name := range apiKeyVars {
		if key := os.Getenv(name); key != "" {
			return key, nil
		}
	}
	return "", &Error{
		Key: apiKeyVars[0],
		Err: errors.New("API key is not set (checked PMT_API_KEY, OPENAI_API_KEY and .env)"),
	}
}

// HasAPIKey reports whether an API key is configured.
func HasAPIKey() bool {
	key, err := LoadAPIKey()
	return err == nil && key != ""
}

// MaskKey renders an API key safe for logging: first and last four
// characters with the middle elided.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
