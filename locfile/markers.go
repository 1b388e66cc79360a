package locfile

import (
	"fmt"
	"regexp"
)

// Game text markers that translations must carry through unchanged:
// £...£ icon references, $...$ variable substitutions, §...§ color codes.
var (
	iconPattern     = regexp.MustCompile(`£[^£]+£`)
	variablePattern = regexp.MustCompile(`\$[^$]+\$`)
	colorPattern    = regexp.MustCompile(`§[^§]+§`)
)

// ExtractMarkers returns all special markers in the text, icons first,
// then variables, then color codes, each group in order of appearance.
func ExtractMarkers(text string) []string {
	var markers []string
	markers = append(markers, iconPattern.FindAllString(text, -1)...)
	markers = append(markers, variablePattern.FindAllString(text, -1)...)
	markers = append(markers, colorPattern.FindAllString(text, -1)...)
	return markers
}

// ContainsMarkers reports whether the text uses any special markers.
func ContainsMarkers(text string) bool {
	return iconPattern.MatchString(text) ||
		variablePattern.MatchString(text) ||
		colorPattern.MatchString(text)
}

// CheckMarkers compares the markers of a source text and its translation
// and returns one description per marker class that differs. An empty
// result means the translation preserved every marker.
func CheckMarkers(source, translated string) []string {
	var problems []string
	checks := []struct {
		name string
		re   *regexp.Regexp
	}{
		{"icon", iconPattern},
		{"variable", variablePattern},
		{"color", colorPattern},
	}
	for _, c := range checks {
		src := c.re.FindAllString(source, -1)
		dst := c.re.FindAllString(translated, -1)
		if !equalStrings(src, dst) {
			problems = append(problems, fmt.Sprintf(
				"%s markers changed: source %v, translated %v", c.name, src, dst))
		}
	}
	return problems
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
