//go:build !unix

package csvstore

import "os"

// Without flock only the in-process lock applies.
func lockFile(_ *os.File, _ bool) error { return nil }

func unlockFile(_ *os.File) error { return nil }
