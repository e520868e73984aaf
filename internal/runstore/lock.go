package runstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	sessionLockDirName   = ".session.lock"
	sessionLockOwnerFile = "owner.json"
)

// SessionLock guards an output directory so that only one controller can
// drive the shared browser session at a time. Two controllers against one
// session is undefined behavior, so acquisition fails loudly instead.
type SessionLock struct {
	lockDir string
}

type sessionLockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

func AcquireSessionLock(outputDir string) (SessionLock, error) {
	target := strings.TrimSpace(outputDir)
	if target == "" {
		return SessionLock{}, fmt.Errorf("output directory is required")
	}

	lockDir := filepath.Join(target, sessionLockDirName)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			ownerPath := filepath.Join(lockDir, sessionLockOwnerFile)
			var owner sessionLockOwner
			if readErr := ReadJSON(ownerPath, &owner); readErr == nil && owner.PID > 0 && owner.CreatedAt != "" {
				return SessionLock{}, fmt.Errorf(
					"output directory already has an active session: %s (pid=%d created_at=%s host=%s)",
					target, owner.PID, owner.CreatedAt, owner.Hostname,
				)
			}
			return SessionLock{}, fmt.Errorf("output directory already has an active session: %s", target)
		}
		return SessionLock{}, fmt.Errorf("acquire session lock for %s: %w", target, err)
	}

	owner := sessionLockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	ownerPath := filepath.Join(lockDir, sessionLockOwnerFile)
	if err := WriteJSON(ownerPath, owner); err != nil {
		_ = os.Remove(lockDir)
		return SessionLock{}, fmt.Errorf("write session lock owner for %s: %w", target, err)
	}

	return SessionLock{lockDir: lockDir}, nil
}

func (l SessionLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, sessionLockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release session lock %s: %w", l.lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
