// Package instance identifies the running worker process.
package instance

import (
	"os"
	"strings"
)

const defaultID = "worker-0"

// GetID returns STOREFRONT_WORKER_ID, then the hostname, then a fixed default.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("STOREFRONT_WORKER_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return defaultID
}
