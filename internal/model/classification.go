package model

import "time"

// Severity is the display flag derived for a log entry at ingestion time.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid checks whether the severity is a known value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning:
		return true
	}
	return false
}

// ClassificationEvent is one result received from the external analysis agent.
type ClassificationEvent struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`

	// Analysis is only meaningful when HasAnalysis is set; an agent that
	// sends no analysis text is classified by its URL instead.
	Analysis    string `json:"analysis,omitempty"`
	HasAnalysis bool   `json:"-"`
}

// WithAnalysis returns a copy of the event carrying the given analysis text.
func (e ClassificationEvent) WithAnalysis(text string) ClassificationEvent {
	e.Analysis = text
	e.HasAnalysis = true
	return e
}

// LogEntry is a classified event as held by the log store. Entries are
// created once at ingestion and never modified afterwards.
type LogEntry struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	URL      string    `json:"url"`
	Title    string    `json:"title,omitempty"`
	Analysis string    `json:"analysis,omitempty"`
	Severity Severity  `json:"severity"`
}

// Clock formats the ingestion time for display (local, 24-hour, seconds).
func (e LogEntry) Clock() string {
	return e.Time.Local().Format("15:04:05")
}

// Headline returns the most descriptive text available for the entry:
// the analysis, then the title, then the URL.
func (e LogEntry) Headline() string {
	switch {
	case e.Analysis != "":
		return e.Analysis
	case e.Title != "":
		return e.Title
	default:
		return e.URL
	}
}
