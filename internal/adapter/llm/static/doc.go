// Package static provides a mock generator that returns a static,
// pre-determined review payload. This is useful for exercising the
// orchestrator and other parts of the system without making live API calls.
package static
