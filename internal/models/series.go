package models

// Series represents a TV show tracked by Bazarr
type Series struct {
	ID    int    `json:"sonarrSeriesId"`
	Title string `json:"title"`
}

// SeriesPage is one page of the Bazarr series listing
type SeriesPage struct {
	Data  []Series `json:"data"`
	Total int      `json:"total"`
}
