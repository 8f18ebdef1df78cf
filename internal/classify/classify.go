// Package classify derives the display severity of a classification event.
//
// Severity is a substring match against a configurable vocabulary: analysis
// text is checked against AnalysisMarkers when the agent supplied any, and
// the URL is checked against URLMarkers otherwise. Matching is
// case-sensitive and locale-naive.
package classify

import (
	"strings"

	"github.com/alfredjeanlab/guardian/internal/model"
)

// Policy maps an event to a severity. Implementations must be pure: the same
// event always yields the same severity.
type Policy interface {
	Classify(ev model.ClassificationEvent) model.Severity
}

// Func adapts an ordinary function to the Policy interface.
type Func func(ev model.ClassificationEvent) model.Severity

// Classify calls f(ev).
func (f Func) Classify(ev model.ClassificationEvent) model.Severity {
	return f(ev)
}

// Default vocabularies.
var (
	DefaultAnalysisMarkers = []string{"위험", "주의", "불법"}
	DefaultURLMarkers      = []string{"shorts"}
)

// Markers flags an event as a warning when the relevant text contains any
// of the configured substrings.
type Markers struct {
	AnalysisMarkers []string `toml:"analysis_markers" json:"analysis_markers"`
	URLMarkers      []string `toml:"url_markers" json:"url_markers"`
}

// Compile-time check that Markers implements Policy.
var _ Policy = Markers{}

// Default returns the marker policy with the default vocabularies.
func Default() Markers {
	return Markers{
		AnalysisMarkers: append([]string(nil), DefaultAnalysisMarkers...),
		URLMarkers:      append([]string(nil), DefaultURLMarkers...),
	}
}

// Classify implements Policy.
func (m Markers) Classify(ev model.ClassificationEvent) model.Severity {
	if ev.HasAnalysis {
		return severityFor(ev.Analysis, m.AnalysisMarkers)
	}
	return severityFor(ev.URL, m.URLMarkers)
}

// Normalize drops empty markers and duplicates, keeping first-seen order.
// An empty marker would match every string.
func (m Markers) Normalize() Markers {
	return Markers{
		AnalysisMarkers: dedupe(m.AnalysisMarkers),
		URLMarkers:      dedupe(m.URLMarkers),
	}
}

func severityFor(text string, markers []string) model.Severity {
	for _, marker := range markers {
		if marker != "" && strings.Contains(text, marker) {
			return model.SeverityWarning
		}
	}
	return model.SeverityInfo
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
