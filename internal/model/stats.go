package model

// Stats are the aggregate counters reported by a storage backend.
type Stats struct {
	TotalPages int `json:"total_pages"`
	Successful int `json:"successful"`
	Errors     int `json:"errors"`
	TotalLinks int `json:"total_links"`
}
