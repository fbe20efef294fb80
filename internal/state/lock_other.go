//go:build !unix

package state

import "os"

// Advisory flock is unavailable; holding the open file handle is the best
// effort on these platforms.
func flockExclusive(file *os.File) error { return nil }

func flockRelease(file *os.File) error { return nil }
