package consumers

import "routectl.dev/internal/logging"

func noopLogger() *logging.ContextLogger {
	return logging.ServiceLogger("routectl-test", "test")
}
