// Package lock provides the advisory project lock held by mutating commands.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("project is locked by another ax process")

// LockedError carries the PID recorded by the current holder.
type LockedError struct {
	Path string
	PID  int // 0 when the lock file holds no readable PID
}

func (e *LockedError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("%v (pid %d, %s)", ErrLocked, e.PID, e.Path)
	}
	return fmt.Sprintf("%v (%s)", ErrLocked, e.Path)
}

func (e *LockedError) Unwrap() error { return ErrLocked }

// FileLock is an exclusive flock on a lock file that records the holder PID.
type FileLock struct {
	path string
	file *os.File

	// ReclaimedFrom is the PID of a dead holder whose lock file was taken over.
	ReclaimedFrom int
}

// Acquire takes the lock at path without blocking. If the file names a PID
// that is no longer running, the lock is reclaimed and ReclaimedFrom set.
func Acquire(path string) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		pid := readPID(f)
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, &LockedError{Path: path, PID: pid}
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	fl := &FileLock{path: path, file: f}
	if prev := readPID(f); prev > 0 && prev != os.Getpid() && !alive(prev) {
		fl.ReclaimedFrom = prev
	}

	if err := writePID(f); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return nil, err
	}
	return fl, nil
}

// Path returns the lock file location.
func (fl *FileLock) Path() string {
	return fl.path
}

// Release clears the recorded PID and unlocks. The lock file itself stays
// in place so every process contends on the same inode. It is safe to call
// more than once.
func (fl *FileLock) Release() error {
	if fl == nil || fl.file == nil {
		return nil
	}
	f := fl.file
	fl.file = nil

	truncErr := f.Truncate(0)
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		f.Close()
		return fmt.Errorf("release lock: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	if truncErr != nil {
		return fmt.Errorf("clear lock file: %w", truncErr)
	}
	return nil
}

// Holder returns the PID recorded in the lock file at path, or 0 when the
// file is missing, empty or names a process that is no longer running.
func Holder(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	pid := readPID(f)
	if pid <= 0 || !alive(pid) {
		return 0
	}
	return pid
}

func readPID(f *os.File) int {
	buf := make([]byte, 32)
	n, _ := f.ReadAt(buf, 0)
	pid, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return 0
	}
	return pid
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return fmt.Errorf("write PID to lock file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

// alive reports whether a process with pid exists.
func alive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
