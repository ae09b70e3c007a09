package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/everstacklabs/librarian/internal/catalog"
	"github.com/everstacklabs/librarian/internal/extract"
)

// Severity classifies validation issues.
type Severity int

const (
	SeverityError   Severity = iota // Fails the validate command
	SeverityWarning                 // Reported but doesn't fail
)

// Issue represents a single validation problem.
type Issue struct {
	Severity Severity
	Record   string
	Field    string
	Message  string
}

func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s - %s", sev, i.Record, i.Field, i.Message)
}

// Result holds all validation issues.
type Result struct {
	Issues []Issue
}

// HasErrors returns true if there are any blocking errors.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (r *Result) Errors() []Issue {
	var errs []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			errs = append(errs, i)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (r *Result) Warnings() []Issue {
	var warns []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			warns = append(warns, i)
		}
	}
	return warns
}

var (
	popularityRe = regexp.MustCompile(`^\d+(?:\.\d+)?[KMB]?$`)
	recencyRe    = regexp.MustCompile(`^\d+ (?:minute|hour|day|week|month|year)s? ago$`)
)

// ValidateRecord checks a single record against the record invariants and
// the size grammars.
func ValidateRecord(rec catalog.Record) *Result {
	r := &Result{}
	name := rec.ID
	if name == "" {
		name = "(unnamed)"
	}
	add := func(sev Severity, field, msg string) {
		r.Issues = append(r.Issues, Issue{sev, name, field, msg})
	}

	// Required fields
	if rec.ID == "" {
		add(SeverityError, "name", "required field is empty")
	}
	if rec.DisplayName == "" {
		add(SeverityError, "fullName", "required field is empty")
	}
	if want := fmt.Sprintf(catalog.RunCommandTemplate, rec.DisplayName); rec.InvocationHint != want {
		add(SeverityError, "runCommand", fmt.Sprintf("got %q, want %q", rec.InvocationHint, want))
	}

	// Tags mirror versions
	if len(rec.Tags) != len(rec.Versions) {
		add(SeverityError, "tags", fmt.Sprintf("%d tags for %d versions", len(rec.Tags), len(rec.Versions)))
	} else {
		for i, v := range rec.Versions {
			if rec.Tags[i] != v.Size {
				add(SeverityError, "tags", fmt.Sprintf("tag %d is %q, version size is %q", i, rec.Tags[i], v.Size))
			}
		}
	}

	// Default version is the first version
	switch {
	case len(rec.Versions) == 0 && rec.DefaultVersion != nil:
		add(SeverityError, "defaultSize", "set without any versions")
	case len(rec.Versions) > 0 && rec.DefaultVersion == nil:
		add(SeverityError, "defaultSize", "missing although versions exist")
	case len(rec.Versions) > 0 && *rec.DefaultVersion != rec.Versions[0]:
		add(SeverityError, "defaultSize", fmt.Sprintf("%+v is not the first version %+v", *rec.DefaultVersion, rec.Versions[0]))
	}

	// Grammar
	seen := make(map[string]bool, len(rec.Versions))
	for i, v := range rec.Versions {
		if !extract.ValidSize(v.Size) {
			add(SeverityError, fmt.Sprintf("parameterVersions[%d].size", i), fmt.Sprintf("%q is not a size token", v.Size))
		}
		if !extract.ValidDiskSize(v.DiskSize) {
			add(SeverityError, fmt.Sprintf("parameterVersions[%d].diskSize", i), fmt.Sprintf("%q is not a disk size", v.DiskSize))
		}
		if seen[v.Size] {
			add(SeverityWarning, "parameterVersions", fmt.Sprintf("size %q listed twice", v.Size))
		}
		seen[v.Size] = true
	}

	// Completeness
	if rec.Description == "" {
		add(SeverityWarning, "description", "empty")
	}
	if len(rec.Versions) == 0 {
		add(SeverityWarning, "parameterVersions", "no versions found")
	}
	if !popularityRe.MatchString(rec.Popularity) {
		add(SeverityWarning, "downloads", fmt.Sprintf("unexpected value %q", rec.Popularity))
	}
	if rec.Recency != extract.DefaultRecency && !recencyRe.MatchString(rec.Recency) {
		add(SeverityWarning, "lastUpdated", fmt.Sprintf("unexpected value %q", rec.Recency))
	}

	return r
}

// ValidateSnapshot validates every record and checks ids are unique.
func ValidateSnapshot(snap *catalog.Snapshot) *Result {
	r := &Result{}
	if len(snap.Records) == 0 {
		r.Issues = append(r.Issues, Issue{SeverityError, "(snapshot)", "models", "snapshot has no records"})
	}
	if snap.GeneratedAt.IsZero() {
		r.Issues = append(r.Issues, Issue{SeverityWarning, "(snapshot)", "lastUpdated", "generation time missing"})
	}

	ids := make(map[string]bool, len(snap.Records))
	for _, rec := range snap.Records {
		if rec.ID != "" && ids[rec.ID] {
			r.Issues = append(r.Issues, Issue{SeverityError, rec.ID, "name", "duplicate id"})
		}
		ids[rec.ID] = true
		r.Issues = append(r.Issues, ValidateRecord(rec).Issues...)
	}
	return r
}

// FormatResult formats validation results for display.
func FormatResult(r *Result) string {
	if len(r.Issues) == 0 {
		return "Validation passed: no issues found."
	}

	var b strings.Builder
	errors := r.Errors()
	warnings := r.Warnings()

	if len(errors) > 0 {
		b.WriteString(fmt.Sprintf("Errors (%d):\n", len(errors)))
		for _, e := range errors {
			b.WriteString(fmt.Sprintf("  %s\n", e))
		}
	}

	if len(warnings) > 0 {
		b.WriteString(fmt.Sprintf("Warnings (%d):\n", len(warnings)))
		for _, w := range warnings {
			b.WriteString(fmt.Sprintf("  %s\n", w))
		}
	}

	return b.String()
}
