// Package snapshot persists catalog snapshots as a dated, immutable trail of
// JSON files next to a stable "latest" file.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/everstacklabs/librarian/internal/catalog"
)

// DateLayout is the date stamp in dated snapshot file names.
const DateLayout = "2006-01-02"

// ErrNoSnapshot is returned by LoadLatest when nothing has been persisted yet.
var ErrNoSnapshot = errors.New("no snapshot persisted")

// PersistError reports which write failed. The dated file is written before
// the latest file, so a failure on "write latest" leaves a new dated file
// next to a stale latest file.
type PersistError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting snapshot: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Store reads and writes the snapshots of one catalog under a content root.
type Store struct {
	root    string
	catalog string
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store for catalog files under root.
func New(root, catalogName string, opts ...Option) *Store {
	s := &Store{root: root, catalog: catalogName, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root is the content root directory.
func (s *Store) Root() string { return s.root }

// LatestPath is the stable file overwritten by every run.
func (s *Store) LatestPath() string {
	return filepath.Join(s.root, s.catalog+".json")
}

// DatedPath is the snapshot file for the given date.
func (s *Store) DatedPath(date string) string {
	return filepath.Join(s.root, s.catalog+"-"+date+".json")
}

// Result describes a completed Persist.
type Result struct {
	Date       string
	DatedPath  string
	LatestPath string
	Snapshot   *catalog.Snapshot
}

// Persist writes records as today's dated snapshot and then as the latest
// snapshot. Rerunning on the same UTC day overwrites that day's file.
func (s *Store) Persist(records []catalog.Record) (*Result, error) {
	now := s.now().UTC()
	snap := &catalog.Snapshot{GeneratedAt: now, Records: records}
	res := &Result{
		Date:       now.Format(DateLayout),
		LatestPath: s.LatestPath(),
		Snapshot:   snap,
	}
	res.DatedPath = s.DatedPath(res.Date)

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, &PersistError{Op: "mkdir", Path: s.root, Err: err}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, &PersistError{Op: "encode", Path: res.DatedPath, Err: err}
	}
	data = append(data, '\n')

	if err := os.WriteFile(res.DatedPath, data, 0o644); err != nil {
		return nil, &PersistError{Op: "write dated", Path: res.DatedPath, Err: err}
	}
	if err := os.WriteFile(res.LatestPath, data, 0o644); err != nil {
		return nil, &PersistError{Op: "write latest", Path: res.LatestPath, Err: err}
	}
	return res, nil
}

// Load decodes the snapshot at path.
func (s *Store) Load(path string) (*catalog.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap catalog.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return &snap, nil
}

// LoadLatest decodes the latest snapshot, or returns ErrNoSnapshot.
func (s *Store) LoadLatest() (*catalog.Snapshot, error) {
	snap, err := s.Load(s.LatestPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	return snap, err
}

// Entry is one dated snapshot on disk.
type Entry struct {
	Date time.Time
	Path string
}

// History lists dated snapshots, newest first.
func (s *Store) History() ([]Entry, error) {
	files, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	prefix := s.catalog + "-"
	var entries []Entry
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
		date, err := time.Parse(DateLayout, stamp)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Date: date, Path: filepath.Join(s.root, name)})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries, nil
}
