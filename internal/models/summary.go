package models

import "sync"

// TranslationFailure records one failed translation with enough context to retry it manually
type TranslationFailure struct {
	SeriesID  int
	EpisodeID int
	Err       error
}

// RunSummary aggregates the outcome of a translation run.
// It is safe for concurrent use.
type RunSummary struct {
	mu sync.Mutex

	Series     int
	Episodes   int
	Translated int
	Failed     int
	Skipped    int
	Planned    int
	Failures   []TranslationFailure
}

// AddSeries records a visited series
func (s *RunSummary) AddSeries() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Series++
}

// AddEpisode records a resolved (series, episode) pair
func (s *RunSummary) AddEpisode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Episodes++
}

// AddTranslated records a successful translate action
func (s *RunSummary) AddTranslated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Translated++
}

// AddSkipped records an episode that was resolved but not sent for translation
func (s *RunSummary) AddSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped++
}

// AddPlanned records an episode that would have been translated in a dry run
func (s *RunSummary) AddPlanned() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Planned++
}

// AddFailure records a failed translate action
func (s *RunSummary) AddFailure(f TranslationFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failed++
	s.Failures = append(s.Failures, f)
}
