package platform

import (
	"os"
	"runtime"
)

// Permission modes for generated files.
const (
	FilePermNormal os.FileMode = 0644
	FilePermSecure os.FileMode = 0600
	DirPermNormal  os.FileMode = 0755
)

// Chmod sets file permissions. On Windows this is a no-op because Windows
// does not support Unix-style permission bits.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}

// PermMatches reports whether path carries exactly the wanted permission
// bits. It always reports true on Windows.
func PermMatches(path string, want os.FileMode) (bool, os.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, 0, err
	}
	got := info.Mode().Perm()
	if runtime.GOOS == "windows" {
		return true, got, nil
	}
	return got == want, got, nil
}
