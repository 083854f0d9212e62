// Package instance names the running worker replica in logs and locks.
package instance

import (
	"os"
	"strings"
)

const fallbackID = "worker-0"

// ID returns configured when it is set, else the hostname, else "worker-0".
func ID(configured string) string {
	if id := strings.TrimSpace(configured); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
