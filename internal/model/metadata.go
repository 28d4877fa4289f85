package model

// MetadataRequest is the body of POST /api/metadata.
type MetadataRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// Metadata is the enrichment record shown to the user before a download is
// started. Fields mirror what the extraction tool reports via --dump-json.
type Metadata struct {
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	Thumbnail   string `json:"thumbnail"`
	Duration    string `json:"duration"`
	SizeBytes   int64  `json:"sizeBytes"`
	Platform    string `json:"platform"`
	OriginalURL string `json:"original_url"`
}
