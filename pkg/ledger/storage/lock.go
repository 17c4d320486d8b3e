package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// lockPollInterval is how often a blocked acquire re-checks the lock file.
const lockPollInterval = 100 * time.Millisecond

// FileLock is an advisory pid-file lock guarding a ledger database against
// concurrent use by multiple processes.
type FileLock struct {
	path string
}

// AcquireLock takes the lock at path, waiting up to timeout. Locks held by
// dead processes are taken over. Returns an error when the wait expires.
func AcquireLock(path string, timeout time.Duration) (*FileLock, error) {
	deadline := time.Now().Add(timeout)

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			if err := f.Close(); err != nil {
				os.Remove(path)
				return nil, err
			}
			return &FileLock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}

		if pid, ok := readLockPID(path); ok && !processAlive(pid) {
			// Stale lock from a dead process; take it over.
			os.Remove(path)
			continue
		}

		if time.Now().After(deadline) {
			pid, _ := readLockPID(path)
			return nil, fmt.Errorf("ledger locked by pid %d (lock file %s)", pid, path)
		}
		time.Sleep(lockPollInterval)
	}
}

// Release removes the lock file. Safe to call once per acquired lock.
func (l *FileLock) Release() error {
	return os.Remove(l.path)
}

// readLockPID reads the owning pid from the lock file.
func readLockPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processAlive reports whether a process with the given pid exists.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
