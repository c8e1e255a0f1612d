package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second
)

// Version is reported in the OpenAPI document and trace resources.
// Overridden at build time with -ldflags "-X ...providers.Version=v1.2.3".
var Version = "dev"
