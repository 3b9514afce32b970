package models

import "strings"

// EpisodeSubtitle is a subtitle attached to an episode, either present on disk or missing
type EpisodeSubtitle struct {
	Name   string `json:"name"`  // Display name (e.g., "English")
	Code2  string `json:"code2"` // ISO-639-1 code
	Code3  string `json:"code3"` // ISO-639-2 code
	Path   string `json:"path"`  // Absolute path on the Bazarr host, empty for missing subtitles
	Forced bool   `json:"forced"`
	HI     bool   `json:"hi"`
}

// Matches reports whether the subtitle is in the given language.
// Both ISO-639-1 and ISO-639-2 codes are accepted.
func (s EpisodeSubtitle) Matches(language string) bool {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return false
	}
	return strings.ToLower(s.Code2) == language || strings.ToLower(s.Code3) == language
}

// Episode represents a single episode of a series as returned by Bazarr
type Episode struct {
	SeriesID         int               `json:"sonarrSeriesId"`
	ID               int               `json:"sonarrEpisodeId"`
	Title            string            `json:"title"`
	Season           int               `json:"season"`
	Episode          int               `json:"episode"`
	Subtitles        []EpisodeSubtitle `json:"subtitles"`
	MissingSubtitles []EpisodeSubtitle `json:"missing_subtitles"`
}

// EpisodeList is the Bazarr episode listing response
type EpisodeList struct {
	Data []Episode `json:"data"`
}

// SourceSubtitle returns the first subtitle on disk in the given language
func (e Episode) SourceSubtitle(language string) (EpisodeSubtitle, bool) {
	for _, sub := range e.Subtitles {
		if sub.Path != "" && sub.Matches(language) {
			return sub, true
		}
	}
	return EpisodeSubtitle{}, false
}

// HasSubtitle reports whether a subtitle in the given language already exists on disk
func (e Episode) HasSubtitle(language string) bool {
	_, ok := e.SourceSubtitle(language)
	return ok
}
