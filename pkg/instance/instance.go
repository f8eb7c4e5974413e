package instance

import "github.com/lucidrepo/lucid-backend/pkg/env"

// GetID identifies the running replica in logs. Cloud Run sets K_REVISION;
// elsewhere the host name is used.
func GetID() string {
	if id := env.Get("K_REVISION", ""); id != "" {
		return id
	}
	return env.Get("HOSTNAME", "local")
}
