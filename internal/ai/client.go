package ai

import (
	"net/http"
	"os"
	"strings"
	"time"
)

func newHTTPClient(timeoutSeconds int64) *http.Client {
	if timeoutSeconds <= 0 {
		return &http.Client{}
	}
	return &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}
}

// resolveAPIKey prefers the configured key and falls back to the environment.
func resolveAPIKey(configured string, envKey string) string {
	if key := strings.TrimSpace(configured); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv(envKey))
}
