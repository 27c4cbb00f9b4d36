package registry

import "os"

// Runtime debug flag for registry traffic logging - controlled by the
// SURF_LOG_REGISTRY env var.
var logRegistry = os.Getenv("SURF_LOG_REGISTRY") != ""
