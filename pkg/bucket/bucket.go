// Package bucket implements the top-level storage engine: an ordered,
// append-only collection of immutable data files, each produced by one
// Insert and fanned out over by Read.
package bucket

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adamwolf/humming/internal/datafile"
	"github.com/adamwolf/humming/internal/hashfn"
	"github.com/adamwolf/humming/pkg/kv"
	"github.com/zerodha/logf"
)

const lockFileName = "bucket.lock"

// Bucket is single-threaded by contract: Insert and Read must not be
// called concurrently on the same Bucket, and neither mutates any state
// shared with another Bucket.
type Bucket struct {
	lo   logf.Logger
	opts Options

	files  []*datafile.Metadata
	nextID int

	flockF *os.File
}

// initLogger builds the logger a Bucket reports errors through.
func initLogger(debug bool) logf.Logger {
	o := logf.Opts{EnableCaller: true}
	if debug {
		o.Level = logf.DebugLevel
	}
	return logf.New(o)
}

// Open prepares a Bucket rooted at the configured directory, acquiring
// the write lockfile unless opened read-only. Files left behind by a
// previous process are not registered for Read - the engine keeps no
// on-disk record of a file's entries_count, so there is nothing to
// recover it from - but their ids are still skipped so a new Insert never
// picks a path that collides with one already on disk.
func Open(configs ...Config) (*Bucket, error) {
	opts := DefaultOptions()
	for _, c := range configs {
		c(opts)
	}

	lo := initLogger(opts.debug)

	if _, err := os.Stat(opts.dir); err != nil {
		return nil, fmt.Errorf("bucket: directory %q: %w", opts.dir, err)
	}

	// The engine keeps no on-disk record of a file's entries_count, so a
	// restarted process cannot recover previously written files into this
	// Bucket's read path. It still must not hand out a path that collides
	// with one already on disk, so the next id starts past any it finds.
	nextID := 0
	existing, err := getDataFiles(opts.dir)
	if err != nil {
		return nil, fmt.Errorf("bucket: listing existing data files in %q: %w", opts.dir, err)
	}
	if len(existing) > 0 {
		ids, err := getIDs(existing)
		if err != nil {
			return nil, err
		}
		nextID = ids[len(ids)-1] + 1
	}

	var flockF *os.File
	if !opts.readOnly {
		lockPath := filepath.Join(opts.dir, lockFileName)
		if exists(lockPath) {
			return nil, ErrLocked
		}
		f, err := createFlockFile(lockPath)
		if err != nil {
			return nil, err
		}
		flockF = f
	}

	return &Bucket{
		lo:     lo,
		opts:   *opts,
		flockF: flockF,
		nextID: nextID,
	}, nil
}

// Insert writes batch as a new sorted bucket file and registers it so
// subsequent Read calls fan out over it. A batch with duplicate keys is
// accepted, but within one file only the first match for a given key is
// ever returned by Read.
func (b *Bucket) Insert(batch kv.Batch) error {
	if b.opts.readOnly {
		return ErrReadOnly
	}

	path := filepath.Join(b.opts.dir, fmt.Sprintf(dataFilePattern, b.nextID))
	m, err := datafile.Write(path, batch, b.opts.direct)
	if err != nil {
		return fmt.Errorf("bucket: inserting batch of %d pairs: %w", len(batch), err)
	}

	b.files = append(b.files, m)
	b.nextID++
	b.lo.Debug("inserted batch", "path", path, "entries", len(batch))
	return nil
}

// Read hashes key once and fans the lookup out over every file in
// insertion order, accumulating every value found. A file-level I/O
// error is logged and treated as no match in that file; it does not
// abort the read of subsequent files.
func (b *Bucket) Read(key string) ([][]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	h := hashfn.Sum64(key)
	var results [][]byte
	for _, m := range b.files {
		val, ok, err := datafile.Lookup(m, key, h)
		if err != nil {
			b.lo.Error("lookup failed in bucket file", "path", m.Path, "key", key, "error", err)
			continue
		}
		if ok {
			results = append(results, val)
		}
	}
	return results, nil
}

// Len returns the number of data files currently registered with the
// bucket.
func (b *Bucket) Len() int {
	return len(b.files)
}

// Close releases every owned file descriptor and, unless opened
// read-only, the write lockfile. It is not safe to use the Bucket
// afterward.
func (b *Bucket) Close() error {
	var firstErr error
	for _, m := range b.files {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if !b.opts.readOnly && b.flockF != nil {
		if err := destroyFlockFile(b.flockF); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
