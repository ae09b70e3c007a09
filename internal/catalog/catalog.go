package catalog

import "fmt"

// NewRecord assembles a record from extracted fields. Tags and DefaultVersion
// are derived from the versions, which keep their discovery order.
func NewRecord(id, displayName string, f Fields) Record {
	versions := make([]VersionEntry, len(f.Versions))
	copy(versions, f.Versions)

	tags := make([]string, 0, len(versions))
	for _, v := range versions {
		tags = append(tags, v.Size)
	}

	var def *VersionEntry
	if len(versions) > 0 {
		first := versions[0]
		def = &first
	}

	return Record{
		ID:             id,
		DisplayName:    displayName,
		Description:    f.Description,
		Tags:           tags,
		Popularity:     f.Popularity,
		Recency:        f.Recency,
		InvocationHint: fmt.Sprintf(RunCommandTemplate, displayName),
		Versions:       versions,
		DefaultVersion: def,
	}
}

// Incomplete reports whether the record is missing a description or versions.
// Such records are still persisted but should be surfaced to operators.
func (r Record) Incomplete() bool {
	return r.Description == "" || len(r.Versions) == 0
}

// MissingFields names the empty fields that make a record incomplete.
func (r Record) MissingFields() []string {
	var missing []string
	if r.Description == "" {
		missing = append(missing, "description")
	}
	if len(r.Versions) == 0 {
		missing = append(missing, "parameterVersions")
	}
	return missing
}

// Find returns the record with the given id.
func (s *Snapshot) Find(id string) (Record, bool) {
	for _, r := range s.Records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}
