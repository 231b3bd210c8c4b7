//go:build !darwin && !windows && !linux

package clip

// New returns a no-op backend; golang.design/x/clipboard has no implementation
// for this platform.
func New() Provider {
	return headlessBackend{}
}
