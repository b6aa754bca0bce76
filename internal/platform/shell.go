package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// VenvBinDir returns the directory holding executables inside a Python
// virtual environment rooted at envPath.
func VenvBinDir(envPath string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(envPath, "Scripts")
	}
	return filepath.Join(envPath, "bin")
}

// ActivationScript returns the path of the activation script inside envPath.
func ActivationScript(envPath string) string {
	return filepath.Join(VenvBinDir(envPath), "activate")
}

// DefaultShell returns the user's interactive shell: $SHELL on Unix,
// %COMSPEC% on Windows, with /bin/bash and cmd.exe as fallbacks.
func DefaultShell() string {
	if runtime.GOOS == "windows" {
		if s := os.Getenv("COMSPEC"); s != "" {
			return s
		}
		return "cmd.exe"
	}
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return "/bin/bash"
}

// ShellArgs returns the arguments that start shell interactively.
func ShellArgs(shell string) []string {
	if runtime.GOOS == "windows" {
		return nil
	}
	switch filepath.Base(shell) {
	case "bash", "zsh", "sh", "fish", "ksh":
		return []string{"-i"}
	default:
		return nil
	}
}

// Editor returns the user's preferred editor: $EDITOR, falling back to
// notepad on Windows or vi elsewhere.
func Editor() string {
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	if runtime.GOOS == "windows" {
		return "notepad"
	}
	return "vi"
}
