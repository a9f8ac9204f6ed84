// Package version exposes the build version stamped in at link time.
package version

// value is overridden via -ldflags "-X .../version.value=v1.2.3".
var value = "dev"

// Value returns the build version string.
func Value() string {
	return value
}
