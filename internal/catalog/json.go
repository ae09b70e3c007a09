package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// recordJSON is the on-disk shape of a record.
type recordJSON struct {
	Name              string         `json:"name"`
	FullName          string         `json:"fullName"`
	Description       string         `json:"description"`
	ModelSize         string         `json:"modelSize"`
	Tags              []string       `json:"tags"`
	Downloads         string         `json:"downloads"`
	LastUpdated       string         `json:"lastUpdated"`
	RunCommand        string         `json:"runCommand"`
	ParameterVersions []VersionEntry `json:"parameterVersions"`
	DefaultSize       string         `json:"defaultSize"`
	DefaultDiskSize   string         `json:"defaultDiskSize"`
}

type snapshotJSON struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Models      []Record  `json:"models"`
}

// MarshalJSON writes the record with the published key names. The default
// version is flattened into modelSize, defaultSize and defaultDiskSize.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		Name:              r.ID,
		FullName:          r.DisplayName,
		Description:       r.Description,
		Tags:              r.Tags,
		Downloads:         r.Popularity,
		LastUpdated:       r.Recency,
		RunCommand:        r.InvocationHint,
		ParameterVersions: r.Versions,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if out.ParameterVersions == nil {
		out.ParameterVersions = []VersionEntry{}
	}
	if r.DefaultVersion != nil {
		out.ModelSize = r.DefaultVersion.Size
		out.DefaultSize = r.DefaultVersion.Size
		out.DefaultDiskSize = r.DefaultVersion.DiskSize
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a record written by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}

	*r = Record{
		ID:             in.Name,
		DisplayName:    in.FullName,
		Description:    in.Description,
		Tags:           in.Tags,
		Popularity:     in.Downloads,
		Recency:        in.LastUpdated,
		InvocationHint: in.RunCommand,
		Versions:       in.ParameterVersions,
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Versions == nil {
		r.Versions = []VersionEntry{}
	}
	if in.DefaultSize != "" {
		r.DefaultVersion = &VersionEntry{Size: in.DefaultSize, DiskSize: in.DefaultDiskSize}
	}
	return nil
}

// MarshalJSON writes the snapshot envelope.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	records := s.Records
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(snapshotJSON{LastUpdated: s.GeneratedAt, Models: records})
}

// UnmarshalJSON reads the snapshot envelope.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	s.GeneratedAt = in.LastUpdated
	s.Records = in.Models
	return nil
}
