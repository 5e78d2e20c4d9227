package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	AppName = "arbitrage-guard"
)

// GetWorkspaceDir returns the root directory for all runtime data.
// A local "_workspace" directory takes priority (portable/dev mode);
// otherwise the OS-standard data directory is used.
func GetWorkspaceDir() string {
	localDir := "_workspace"
	if _, err := os.Stat(localDir); err == nil {
		return localDir
	}

	var baseDir string
	switch runtime.GOOS {
	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			baseDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, "Library", "Application Support")
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, _ := os.UserHomeDir()
			dataHome = filepath.Join(home, ".local", "share")
		}
		baseDir = dataHome
	}

	return filepath.Join(baseDir, AppName)
}

// ResolveConfigPath returns the config file location: ARB_CONFIG when set,
// otherwise config.yaml next to the binary's working directory.
func ResolveConfigPath() string {
	if path := os.Getenv("ARB_CONFIG"); path != "" {
		return path
	}
	return "config.yaml"
}

// EnsureDir creates a directory (and parents) if it does not exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// CreateLockFile takes a single-instance lock on the workspace. Two processes
// sharing the same audit DB would corrupt the single-writer WAL assumption.
// The returned func releases the lock.
func CreateLockFile(workDir string) (func(), error) {
	if err := EnsureDir(workDir); err != nil {
		return nil, err
	}

	lockPath := filepath.Join(workDir, ".lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("workspace %s is locked by another instance (remove %s if stale)", workDir, lockPath)
		}
		return nil, err
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	return func() { os.Remove(lockPath) }, nil
}
