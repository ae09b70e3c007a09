package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// PopularityMarker follows the pull count on detail pages.
	PopularityMarker = "Pulls"

	// DefaultPopularity is used when no pull count is present.
	DefaultPopularity = "0"

	// DefaultRecency is used when no "N units ago" phrase is present.
	DefaultRecency = "unknown"

	// minDescriptionRunes is the length a line must exceed to be taken as a
	// description when no anchor line exists.
	minDescriptionRunes = 50
)

var (
	popularityRe = regexp.MustCompile(`(\d+(?:\.\d+)?[KMB]?)\s*` + PopularityMarker)
	recencyRe    = regexp.MustCompile(`\d+\s+(?:minute|hour|day|week|month|year)s?\s+ago`)
)

// DescriptionCascade finds the entry description.
var DescriptionCascade = Cascade[string]{
	textStrategy("anchor", descriptionAfterName),
	textStrategy("long-line", descriptionFromLongLine),
}

// PopularityCascade finds the pull count.
var PopularityCascade = Cascade[string]{
	textStrategy("pulls-marker", popularityFromMarker),
}

// RecencyCascade finds the "updated N units ago" label.
var RecencyCascade = Cascade[string]{
	textStrategy("ago-phrase", recencyFromPhrase),
}

// descriptionAfterName takes the line that follows a line equal to the entry
// name. An anchor on the last line is skipped in favour of a later one.
func descriptionAfterName(in *Input) (string, bool) {
	for i, line := range in.Lines {
		if line != in.Name || i+1 >= len(in.Lines) {
			continue
		}
		return in.Lines[i+1], true
	}
	return "", false
}

func descriptionFromLongLine(in *Input) (string, bool) {
	for _, line := range in.Lines {
		if utf8.RuneCountInString(line) <= minDescriptionRunes {
			continue
		}
		if strings.Contains(line, PopularityMarker) || recencyRe.MatchString(line) {
			continue
		}
		return line, true
	}
	return "", false
}

func popularityFromMarker(in *Input) (string, bool) {
	m := popularityRe.FindStringSubmatch(in.Text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func recencyFromPhrase(in *Input) (string, bool) {
	m := recencyRe.FindString(in.Text)
	if m == "" {
		return "", false
	}
	// The phrase may wrap across lines in rendered text.
	return strings.Join(strings.Fields(m), " "), true
}
