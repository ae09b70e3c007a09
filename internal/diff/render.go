package diff

import (
	"fmt"
	"strings"
)

// RenderSummary formats the changeset for the terminal.
func RenderSummary(cs *ChangeSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d new, %d updated, %d removed, %d unchanged\n",
		cs.Catalog, len(cs.New), len(cs.Updated), len(cs.Removed), cs.Unchanged)

	for _, n := range cs.New {
		fmt.Fprintf(&b, "  + %s %s\n", n.ID, tagList(n.Record.Tags))
	}
	for _, u := range cs.Updated {
		fmt.Fprintf(&b, "  ~ %s\n", u.ID)
		for _, c := range u.Changes {
			fmt.Fprintf(&b, "      %s: %v -> %v\n", c.Field, c.OldValue, c.NewValue)
		}
	}
	for _, r := range cs.Removed {
		fmt.Fprintf(&b, "  - %s\n", r.ID)
	}
	for _, rp := range cs.PossibleRenames {
		fmt.Fprintf(&b, "  ? %s -> %s (%s)\n", rp.OldID, rp.NewID, rp.Reason)
	}
	return b.String()
}

// RenderPRBody formats the changeset as a markdown pull request body.
func RenderPRBody(cs *ChangeSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s snapshot update\n\n", cs.Catalog)
	fmt.Fprintf(&b, "| New | Updated | Removed | Unchanged |\n|---|---|---|---|\n| %d | %d | %d | %d |\n",
		len(cs.New), len(cs.Updated), len(cs.Removed), cs.Unchanged)

	if len(cs.New) > 0 {
		b.WriteString("\n### New\n\n")
		for _, n := range cs.New {
			fmt.Fprintf(&b, "- `%s` %s\n", n.ID, tagList(n.Record.Tags))
		}
	}

	if len(cs.Updated) > 0 {
		b.WriteString("\n### Updated\n\n| Entry | Field | Old | New |\n|---|---|---|---|\n")
		for _, u := range cs.Updated {
			for _, c := range u.Changes {
				fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", u.ID, c.Field, cell(c.OldValue), cell(c.NewValue))
			}
		}
	}

	if len(cs.Removed) > 0 {
		b.WriteString("\n### Removed\n\n")
		for _, r := range cs.Removed {
			fmt.Fprintf(&b, "- `%s`\n", r.ID)
		}
	}

	if len(cs.PossibleRenames) > 0 {
		b.WriteString("\n### Possible renames\n\n")
		for _, rp := range cs.PossibleRenames {
			fmt.Fprintf(&b, "- `%s` → `%s` (%s)\n", rp.OldID, rp.NewID, rp.Reason)
		}
	}

	return b.String()
}

func tagList(tags []string) string {
	if len(tags) == 0 {
		return "(no versions)"
	}
	return "[" + strings.Join(tags, ", ") + "]"
}

func cell(v any) string {
	s := fmt.Sprint(v)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}
