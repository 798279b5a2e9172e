package models

// LyricsSearchResult is a page of full-text lyrics matches.
type LyricsSearchResult struct {
	Songs      []Song `json:"songs"`
	TotalFound int    `json:"total_found"`
	SearchTime int    `json:"search_time_ms"`
}
