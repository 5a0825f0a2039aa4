package domain

// ImageRecord is a candidate image returned by an image source search.
type ImageRecord struct {
	SourceID    string `json:"id"`
	Description string `json:"description"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
	Author      string `json:"author"`
	Source      string `json:"source"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// BestURL returns the full resolution URL, falling back to the display URL.
func (r ImageRecord) BestURL() string {
	if r.DownloadURL != "" {
		return r.DownloadURL
	}
	return r.URL
}

// DownloadedImage is an ImageRecord whose bytes were stored for a job.
type DownloadedImage struct {
	ImageRecord
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// DownloadResult is the terminal payload of a download job.
type DownloadResult struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Images     []DownloadedImage `json:"images"`
	Total      int               `json:"total"`
	Downloaded int               `json:"downloaded"`
	Failed     int               `json:"failed"`
	Query      string            `json:"query"`
	Provider   string            `json:"provider"`
	JobID      string            `json:"job_id"`
}

// ImageInfo identifies an image sent for analysis.
type ImageInfo struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// EncodedImage is a transport-ready image: JPEG bytes encoded as base64.
type EncodedImage struct {
	ImageInfo
	Data string
}
