// Package backup protects existing output files while they are regenerated.
// An FBX file about to be overwritten is copied aside first and put back if
// the export fails, so a failed conversion never destroys a good output.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gr2fbx/internal/errors"
)

// Manager handles file backup and restoration operations.
type Manager struct {
	enabled bool
	now     func() time.Time
}

// NewBackupManager creates a Manager. A disabled manager turns every
// operation into a no-op.
func NewBackupManager(enabled bool) *Manager {
	return &Manager{
		enabled: enabled,
		now:     time.Now,
	}
}

// BackupFile copies filePath to a timestamped .bak file next to it and
// returns the backup path. It returns "" without error when backups are
// disabled or filePath does not exist yet.
func (bm *Manager) BackupFile(filePath string) (string, error) {
	if !bm.enabled {
		return "", nil
	}

	srcInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.NewBackupError(filePath, "cannot stat existing output", err)
	}
	if !srcInfo.Mode().IsRegular() {
		return "", errors.NewBackupError(filePath, "existing output is not a regular file", nil)
	}

	backupPath := bm.generateBackupPath(filePath)
	if err := copyFile(filePath, backupPath, srcInfo.Mode()); err != nil {
		_ = os.Remove(backupPath)
		return "", errors.NewBackupError(backupPath, "failed to create backup file", err)
	}

	return backupPath, nil
}

// RestoreFile puts the backup back in place of originalPath and removes the
// backup. An empty backupPath means there was nothing to protect, in which
// case any partial file left at originalPath is removed.
func (bm *Manager) RestoreFile(originalPath, backupPath string) error {
	if !bm.enabled {
		return nil
	}

	if backupPath == "" {
		err := os.Remove(originalPath)
		if err != nil && !os.IsNotExist(err) {
			return errors.NewBackupError(originalPath, "failed to remove partial output", err)
		}
		return nil
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return errors.NewBackupError(backupPath, "backup file not found", err)
	}

	if err := copyFile(backupPath, originalPath, info.Mode()); err != nil {
		return errors.NewBackupError(originalPath, "failed to restore file content", err)
	}

	return bm.CleanupBackup(backupPath)
}

// CleanupBackup removes a backup file.
func (bm *Manager) CleanupBackup(backupPath string) error {
	if backupPath == "" {
		return nil
	}

	err := os.Remove(backupPath)
	if err != nil && !os.IsNotExist(err) {
		return errors.NewBackupError(backupPath, "failed to remove backup file", err)
	}

	return nil
}

func (bm *Manager) generateBackupPath(originalPath string) string {
	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	timestamp := bm.now().Format("20060102_150405")

	return filepath.Join(dir, fmt.Sprintf("%s.%s.bak", base, timestamp))
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
