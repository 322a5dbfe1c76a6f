package instance

import (
	"os"

	"github.com/angelmondragon/noticecast/pkg/env"
)

// EnvInstanceID overrides the identifier an API or worker process reports.
const EnvInstanceID = "NOTICECAST_INSTANCE_ID"

// GetID returns the process identifier used in logs and lock ownership:
// NOTICECAST_INSTANCE_ID, else the hostname, else fallback.
func GetID(fallback string) string {
	if id := env.Get(EnvInstanceID, ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}
