package snapshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestFile is written next to the snapshots.
const ManifestFile = "manifest.yaml"

// ManifestSnapshot describes one dated snapshot.
type ManifestSnapshot struct {
	Date   string `yaml:"date"`
	File   string `yaml:"file"`
	Models int    `yaml:"models"`
}

// Manifest indexes the snapshot history of a catalog.
type Manifest struct {
	Catalog     string             `yaml:"catalog"`
	GeneratedAt string             `yaml:"generated_at"`
	Latest      string             `yaml:"latest"`
	Models      int                `yaml:"models"`
	Snapshots   []ManifestSnapshot `yaml:"snapshots"`
}

const manifestHeader = "# Snapshot manifest\n# Auto-generated - DO NOT EDIT MANUALLY\n# Run: librarian crawl to regenerate\n\n"

// BuildManifest reads the history on disk into a Manifest.
func (s *Store) BuildManifest() (*Manifest, error) {
	history, err := s.History()
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Catalog:     s.catalog,
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
		Latest:      filepath.Base(s.LatestPath()),
	}
	if latest, err := s.LoadLatest(); err == nil {
		m.Models = len(latest.Records)
	}

	for _, e := range history {
		ms := ManifestSnapshot{Date: e.Date.Format(DateLayout), File: filepath.Base(e.Path)}
		snap, err := s.Load(e.Path)
		if err != nil {
			slog.Warn("skipping unreadable snapshot in manifest", "path", e.Path, "error", err)
			continue
		}
		ms.Models = len(snap.Records)
		m.Snapshots = append(m.Snapshots, ms)
	}
	return m, nil
}

// WriteManifest regenerates manifest.yaml from the snapshots on disk.
func (s *Store) WriteManifest() error {
	m, err := s.BuildManifest()
	if err != nil {
		return fmt.Errorf("building manifest: %w", err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	path := filepath.Join(s.root, ManifestFile)
	if err := os.WriteFile(path, []byte(manifestHeader+string(data)), 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadManifest decodes manifest.yaml.
func (s *Store) ReadManifest() (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.root, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
