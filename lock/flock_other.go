//go:build !unix

package lock

import "os"

const fileLocksSupported = false

func tryFlock(*os.File) (bool, error) { return false, ErrUnsupported }

func unflock(*os.File) error { return ErrUnsupported }
