package models

import "fmt"

// ErrorPolicy decides what happens to a run when a single translation fails
type ErrorPolicy string

const (
	// ErrorPolicyContinue logs the failure and moves on to the next episode
	ErrorPolicyContinue ErrorPolicy = "continue"
	// ErrorPolicyAbort stops the run at the first failure
	ErrorPolicyAbort ErrorPolicy = "abort"
)

// Selection describes which episodes should be translated and into which language.
// A nil SeriesID selects every series, a nil EpisodeID every episode of the selected series.
type Selection struct {
	TargetLanguage string
	SeriesID       *int
	EpisodeID      *int
}

// String renders the selection for log output
func (s Selection) String() string {
	return fmt.Sprintf("language=%s series=%s episode=%s", s.TargetLanguage, optionalID(s.SeriesID), optionalID(s.EpisodeID))
}

func optionalID(id *int) string {
	if id == nil {
		return "all"
	}
	return fmt.Sprintf("%d", *id)
}

// TranslateRequest is a single translate action sent to Bazarr
type TranslateRequest struct {
	SeriesID   int
	EpisodeID  int
	Language   string
	SourcePath string
	Forced     bool
	HI         bool
}
