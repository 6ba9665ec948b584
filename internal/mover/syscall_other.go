//go:build !unix

package mover

// Without a portable cross-device errno, fall back to always attempting
// the copy path on rename failure.
func isCrossDevice(err error) bool {
	return err != nil
}
