package domain

// Export is a rendered location history ready to be served as a download.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}
