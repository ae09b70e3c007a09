package catalog

import "time"

// UnknownDiskSize marks a version whose download size was not discoverable.
const UnknownDiskSize = "unknown"

// RunCommandTemplate is interpolated with the display name to build a record's
// invocation hint.
const RunCommandTemplate = "ollama run %s"

// VersionEntry is one distributable size of a library entry.
type VersionEntry struct {
	Size     string `json:"size"`
	DiskSize string `json:"diskSize"`
}

// Fields holds the raw extraction output for one entry.
type Fields struct {
	Description string
	Popularity  string
	Recency     string
	Versions    []VersionEntry
}

// Record is the assembled view of a single library entry.
// Build it with NewRecord; the derived fields depend on Versions.
type Record struct {
	ID             string
	DisplayName    string
	Description    string
	Tags           []string
	Popularity     string
	Recency        string
	InvocationHint string
	Versions       []VersionEntry
	DefaultVersion *VersionEntry
}

// Snapshot is the full result of one crawl.
type Snapshot struct {
	GeneratedAt time.Time
	Records     []Record
}
