//go:build !unix

package flock

import "os"

// Locking is treated as unsupported and always succeeds.
func tryLock(_ *os.File, _ bool) (bool, error) {
	return true, nil
}

func unlock(_ *os.File) error {
	return nil
}
