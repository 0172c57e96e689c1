package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DirStats summarizes the regular files under a directory.
type DirStats struct {
	Files int
	Bytes int64
}

// StatDir returns the number and total size of regular files under dir, recursively.
// A missing dir yields zero stats and no error.
func StatDir(dir string) (DirStats, error) {
	var stats DirStats
	if dir == "" {
		return stats, nil
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, err
	}
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.Files++
		stats.Bytes += info.Size()
		return nil
	})
	return stats, err
}
