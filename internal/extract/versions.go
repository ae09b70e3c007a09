package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/everstacklabs/librarian/internal/catalog"
)

const (
	sizePattern = `\d+x\d+(?:\.\d+)?[bB]|\d+(?:\.\d+)?[bB]`
	diskPattern = `\d+(?:\.\d+)?[KMGT]B`

	// namePlaceholder in a selector is replaced with the entry name.
	namePlaceholder = "{name}"

	viewAllLabel = "View all"
)

var (
	sizeRe      = regexp.MustCompile(`\b(` + sizePattern + `)\b`)
	diskRe      = regexp.MustCompile(`\b(` + diskPattern + `)\b`)
	pairRe      = regexp.MustCompile(`\b(` + sizePattern + `)\s*\(?\s*(` + diskPattern + `)\b`)
	pullsNextRe = regexp.MustCompile(`^\s*` + PopularityMarker)

	sizeExactRe = regexp.MustCompile(`^(?:` + sizePattern + `)$`)
	diskExactRe = regexp.MustCompile(`^(?:` + diskPattern + `)$`)
)

// Selectors locate version information in the rendered DOM.
type Selectors struct {
	// Versions matches dedicated version-selector elements.
	Versions string
	// ExpandTrigger opens the collapsed version panel.
	ExpandTrigger string
	// ExpandedRegion appears once the panel has been expanded.
	ExpandedRegion string
	// ExpandedLinks matches the version links inside the expanded panel.
	ExpandedLinks string
	// ExpandTimeout bounds the wait for ExpandedRegion.
	ExpandTimeout time.Duration
}

// DefaultSelectors match the ollama.com library markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Versions:       `a[href^="/library/{name}:"]`,
		ExpandTrigger:  `button[name="tag"]`,
		ExpandedRegion: `#tags-nav`,
		ExpandedLinks:  `#tags-nav a[href^="/library/"]`,
		ExpandTimeout:  time.Second,
	}
}

// VersionCascade builds the four-tier version list cascade.
func VersionCascade(sel Selectors) Cascade[[]catalog.VersionEntry] {
	return Cascade[[]catalog.VersionEntry]{
		{Name: "selector", Run: selectorVersions(sel)},
		{Name: "expanded-panel", Run: expandedPanelVersions(sel)},
		textStrategy("text-pairs", pairedVersions),
		textStrategy("bare-size", bareSizeVersion),
	}
}

// ValidSize reports whether s is a normalized parameter-count token.
func ValidSize(s string) bool {
	return s == strings.ToLower(s) && sizeExactRe.MatchString(s)
}

// ValidDiskSize reports whether s is a byte-size token or the unknown sentinel.
func ValidDiskSize(s string) bool {
	return s == catalog.UnknownDiskSize || diskExactRe.MatchString(s)
}

func selectorVersions(sel Selectors) func(context.Context, *Input) ([]catalog.VersionEntry, bool) {
	return func(ctx context.Context, in *Input) ([]catalog.VersionEntry, bool) {
		if in.Elements == nil || sel.Versions == "" {
			return nil, false
		}
		selector := expandName(sel.Versions, in.Name)
		texts, err := in.Elements.Texts(ctx, selector)
		if err != nil {
			slog.Debug("version selector query failed", "name", in.Name, "selector", selector, "error", err)
			return nil, false
		}
		versions := parseElementTexts(texts)
		return versions, len(versions) > 0
	}
}

// expandedPanelVersions opens the collapsed version panel, waits for the
// nested region and re-queries its links.
func expandedPanelVersions(sel Selectors) func(context.Context, *Input) ([]catalog.VersionEntry, bool) {
	return func(ctx context.Context, in *Input) ([]catalog.VersionEntry, bool) {
		if in.Elements == nil || sel.ExpandTrigger == "" || sel.ExpandedLinks == "" {
			return nil, false
		}

		triggers, err := in.Elements.Texts(ctx, sel.ExpandTrigger)
		if err != nil || len(triggers) == 0 {
			return nil, false
		}

		if err := in.Elements.RequestExpansion(ctx, sel.ExpandTrigger); err != nil {
			slog.Debug("version panel expansion failed", "name", in.Name, "error", err)
			return nil, false
		}
		if err := in.Elements.AwaitStable(ctx, sel.ExpandedRegion, sel.ExpandTimeout); err != nil {
			slog.Debug("version panel did not settle, querying anyway", "name", in.Name, "error", err)
		}

		texts, err := in.Elements.Texts(ctx, sel.ExpandedLinks)
		if err != nil {
			slog.Debug("expanded version query failed", "name", in.Name, "error", err)
			return nil, false
		}

		var kept []string
		for _, t := range texts {
			if !strings.Contains(t, viewAllLabel) {
				kept = append(kept, t)
			}
		}
		versions := parseElementTexts(kept)
		return versions, len(versions) > 0
	}
}

// pairedVersions collects every "<size> (<disk>)" occurrence in the page text.
func pairedVersions(in *Input) ([]catalog.VersionEntry, bool) {
	var versions []catalog.VersionEntry
	for _, m := range pairRe.FindAllStringSubmatch(in.Text, -1) {
		versions = appendUnique(versions, catalog.VersionEntry{
			Size:     strings.ToLower(m[1]),
			DiskSize: m[2],
		})
	}
	return versions, len(versions) > 0
}

// bareSizeVersion takes the first size token in the page text.
func bareSizeVersion(in *Input) ([]catalog.VersionEntry, bool) {
	size, ok := firstSize(in.Text)
	if !ok {
		return nil, false
	}
	return []catalog.VersionEntry{{Size: size, DiskSize: catalog.UnknownDiskSize}}, true
}

// parseElementTexts parses one version per element text, skipping elements
// that carry no size token.
func parseElementTexts(texts []string) []catalog.VersionEntry {
	var versions []catalog.VersionEntry
	for _, t := range texts {
		if v, ok := parseVersionText(t); ok {
			versions = appendUnique(versions, v)
		}
	}
	return versions
}

// parseVersionText reads a size token and, when present, the disk size that
// follows it.
func parseVersionText(text string) (catalog.VersionEntry, bool) {
	loc := sizeLoc(text)
	if loc == nil {
		return catalog.VersionEntry{}, false
	}
	v := catalog.VersionEntry{
		Size:     strings.ToLower(text[loc[2]:loc[3]]),
		DiskSize: catalog.UnknownDiskSize,
	}
	if m := diskRe.FindStringSubmatch(text[loc[1]:]); m != nil {
		v.DiskSize = m[1]
	}
	return v, true
}

func firstSize(text string) (string, bool) {
	loc := sizeLoc(text)
	if loc == nil {
		return "", false
	}
	return strings.ToLower(text[loc[2]:loc[3]]), true
}

// sizeLoc returns the submatch indices of the first size token that is not a
// pull count such as "1.2B Pulls".
func sizeLoc(text string) []int {
	for _, loc := range sizeRe.FindAllStringSubmatchIndex(text, -1) {
		if pullsNextRe.MatchString(text[loc[1]:]) {
			continue
		}
		return loc
	}
	return nil
}

func appendUnique(versions []catalog.VersionEntry, v catalog.VersionEntry) []catalog.VersionEntry {
	for _, existing := range versions {
		if existing.Size == v.Size {
			return versions
		}
	}
	return append(versions, v)
}

func expandName(selector, name string) string {
	return strings.ReplaceAll(selector, namePlaceholder, name)
}
