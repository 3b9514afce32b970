package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/Belphemur/bazarr-translate/internal/config"
	"github.com/Belphemur/bazarr-translate/internal/models"
)

// TestAPIKey is the API key accepted by FakeBazarr
const TestAPIKey = "test-api-key"

// TranslateCall is a translate action received by FakeBazarr
type TranslateCall struct {
	Method         string
	EpisodeID      int
	Language       string
	Path           string
	Type           string
	Forced         string
	HI             string
	OriginalFormat string
}

// FakeBazarr is an in-memory Bazarr API serving series, episodes and the translate action.
// Set the exported fields before issuing requests.
type FakeBazarr struct {
	Server *httptest.Server

	Series   []models.Series
	Episodes map[int][]models.Episode

	// TranslateStatus overrides the status of a translate action, 0 means 204
	TranslateStatus func(episodeID int) int
	// SeriesStatus overrides the status of the series listing, 0 means 200
	SeriesStatus func(start int) int
	// EpisodesStatus overrides the status of an episode listing, 0 means 200
	EpisodesStatus func(seriesID int) int

	mu              sync.Mutex
	translations    []TranslateCall
	seriesRequests  int
	episodeRequests map[int]int
	totalRequests   int
}

// NewFakeBazarr starts a fake Bazarr server that is closed with the test
func NewFakeBazarr(t testing.TB) *FakeBazarr {
	t.Helper()
	f := &FakeBazarr{
		Episodes:        make(map[int][]models.Episode),
		episodeRequests: make(map[int]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake server
func (f *FakeBazarr) URL() string {
	return f.Server.URL
}

// AddSeries registers a series with the given episodes
func (f *FakeBazarr) AddSeries(series models.Series, episodes ...models.Episode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Series = append(f.Series, series)
	f.Episodes[series.ID] = append(f.Episodes[series.ID], episodes...)
}

// Translations returns a copy of every translate action received
func (f *FakeBazarr) Translations() []TranslateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TranslateCall(nil), f.translations...)
}

// SeriesRequests returns the number of series listing requests
func (f *FakeBazarr) SeriesRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seriesRequests
}

// EpisodeRequests returns the number of episode listing requests for a series
func (f *FakeBazarr) EpisodeRequests(seriesID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.episodeRequests[seriesID]
}

// TotalRequests returns the number of requests received, authorized or not
func (f *FakeBazarr) TotalRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalRequests
}

func (f *FakeBazarr) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.totalRequests++
	f.mu.Unlock()

	if r.Header.Get("X-API-KEY") != TestAPIKey {
		http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/series":
		f.serveSeries(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/api/episodes":
		f.serveEpisodes(w, r)
	case r.Method == http.MethodPatch && r.URL.Path == "/api/subtitles":
		f.serveTranslate(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeBazarr) serveSeries(w http.ResponseWriter, r *http.Request) {
	start, _ := strconv.Atoi(r.URL.Query().Get("start"))
	length, err := strconv.Atoi(r.URL.Query().Get("length"))
	if err != nil {
		length = -1
	}

	f.mu.Lock()
	f.seriesRequests++
	all := append([]models.Series(nil), f.Series...)
	f.mu.Unlock()

	if f.SeriesStatus != nil {
		if status := f.SeriesStatus(start); status != 0 && status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
	}

	page := []models.Series{}
	if start < len(all) {
		end := len(all)
		if length > 0 && start+length < end {
			end = start + length
		}
		page = all[start:end]
	}
	writeJSON(w, models.SeriesPage{Data: page, Total: len(all)})
}

func (f *FakeBazarr) serveEpisodes(w http.ResponseWriter, r *http.Request) {
	seriesID, err := strconv.Atoi(r.URL.Query().Get("seriesid[]"))
	if err != nil {
		http.Error(w, "missing seriesid[]", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.episodeRequests[seriesID]++
	episodes := append([]models.Episode{}, f.Episodes[seriesID]...)
	f.mu.Unlock()

	if f.EpisodesStatus != nil {
		if status := f.EpisodesStatus(seriesID); status != 0 && status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
	}

	writeJSON(w, models.EpisodeList{Data: episodes})
}

func (f *FakeBazarr) serveTranslate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("action") != "translate" {
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}
	episodeID, _ := strconv.Atoi(q.Get("id"))

	f.mu.Lock()
	f.translations = append(f.translations, TranslateCall{
		Method:         r.Method,
		EpisodeID:      episodeID,
		Language:       q.Get("language"),
		Path:           q.Get("path"),
		Type:           q.Get("type"),
		Forced:         q.Get("forced"),
		HI:             q.Get("hi"),
		OriginalFormat: q.Get("original_format"),
	})
	f.mu.Unlock()

	status := http.StatusNoContent
	if f.TranslateStatus != nil {
		if s := f.TranslateStatus(episodeID); s != 0 {
			status = s
		}
	}
	w.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

// Episode builds an episode with one subtitle on disk per given language code
func Episode(seriesID, episodeID int, languages ...string) models.Episode {
	ep := models.Episode{
		SeriesID: seriesID,
		ID:       episodeID,
		Title:    fmt.Sprintf("Episode %d", episodeID),
		Season:   1,
		Episode:  episodeID,
	}
	for _, lang := range languages {
		ep.Subtitles = append(ep.Subtitles, models.EpisodeSubtitle{
			Name:  lang,
			Code2: lang,
			Path:  fmt.Sprintf("/tv/%d/S01E%02d.%s.srt", seriesID, episodeID, lang),
		})
	}
	return ep
}

// Config returns a client configuration pointing at baseURL with retries and throttling disabled
func Config(baseURL string) *config.Config {
	cfg := &config.Config{
		APIKey:         TestAPIKey,
		BaseURL:        baseURL,
		ClientTimeout:  "5s",
		UserAgent:      config.DefaultUserAgent,
		TargetLanguage: "nl",
		SourceLanguage: "en",
		OnError:        "continue",
		Concurrency:    1,
		PageSize:       50,
	}
	cfg.Retry.Delay = "10ms"
	cfg.Retry.MaxDelay = "50ms"
	return cfg
}
