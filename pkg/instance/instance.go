package instance

import (
	"os"
	"strings"
)

// EnvInstanceID overrides the detected process identity.
const EnvInstanceID = "RENTMARKET_INSTANCE_ID"

// GetID identifies this process in logs and lock ownership: the explicit
// override, then the platform dyno name, then the hostname.
func GetID() string {
	for _, key := range []string{EnvInstanceID, "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
