package bucket

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const dataFilePattern = "bucket_%d.db"

// exists returns true if the given path exists on the filesystem.
func exists(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return true
}

// getDataFiles returns the list of bucket data files in dir.
func getDataFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(fmt.Sprintf("%s/*.db", dir))
	if err != nil {
		return nil, err
	}
	return files, nil
}

// getIDs returns the sorted list of numeric IDs extracted from the
// dataFilePattern filenames in files.
func getIDs(files []string) ([]int, error) {
	ids := make([]int, 0, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), ".db")
		id, err := strconv.ParseInt(strings.TrimPrefix(name, "bucket_"), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bucket: parsing id from %q: %w", f, err)
		}
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	return ids, nil
}

// createFlockFile creates and advisory-locks the bucket directory's
// lockfile, preventing another writer process from opening it.
func createFlockFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("bucket: creating lockfile %q: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return nil, fmt.Errorf("bucket: acquiring lock on %q: %w", path, err)
	}
	return f, nil
}

// destroyFlockFile releases and removes a lockfile created by
// createFlockFile.
func destroyFlockFile(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("bucket: unlocking %q: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("bucket: closing lockfile %q: %w", f.Name(), err)
	}
	if err := os.Remove(f.Name()); err != nil {
		return fmt.Errorf("bucket: removing lockfile %q: %w", f.Name(), err)
	}
	return nil
}
