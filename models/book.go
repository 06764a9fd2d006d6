// Package models defines data structures shared by the scraper, the
// persistence pipeline and the HTTP API.
package models

// Book represents a single book record extracted from a catalogue or
// product page. ScrapeTimestamp and SourceURL are assigned at persistence
// time, not at extraction time.
type Book struct {
	Title           string    `csv:"title" json:"title"`
	Price           string    `csv:"price" json:"price"`
	Rating          string    `csv:"rating" json:"rating"`
	Availability    string    `csv:"availability" json:"availability"`
	ImageURL        string    `csv:"image_url" json:"image_url"`
	ScrapeTimestamp string    `csv:"scrape_timestamp" json:"scrape_timestamp,omitempty"`
	SourceURL       string    `csv:"source_url" json:"source_url,omitempty"`
	AIAnalysis      *Analysis `csv:"-" json:"ai_analysis,omitempty"`
}

// CSVHeader is the column order of the cumulative store and every snapshot.
var CSVHeader = []string{"title", "price", "rating", "availability", "image_url", "scrape_timestamp", "source_url"}

// CSVRecord returns the book as a row matching CSVHeader.
func (b *Book) CSVRecord() []string {
	return []string{
		b.Title,
		b.Price,
		b.Rating,
		b.Availability,
		b.ImageURL,
		b.ScrapeTimestamp,
		b.SourceURL,
	}
}

// Analysis is the keyword sentiment attached to a book when the ai
// feature is enabled.
type Analysis struct {
	Sentiment     string `json:"sentiment"`
	Score         int    `json:"score"`
	PositiveWords int    `json:"positive_words"`
	NegativeWords int    `json:"negative_words"`
	Analysis      string `json:"analysis"`
}

// Features is the caller supplied flag set. Absent flags decode to false.
// Speed is accepted and echoed but changes nothing.
type Features struct {
	Speed    bool `json:"speed"`
	AI       bool `json:"ai"`
	Security bool `json:"security"`
}

// Storage reports the persistence outcome of a request.
type Storage struct {
	SavedToCSV bool    `json:"saved_to_csv"`
	Filename   *string `json:"filename"`
	Backup     *string `json:"backup"`
}

// ScrapeResult is the response envelope for a successful scrape.
type ScrapeResult struct {
	Books             []*Book  `json:"books"`
	Source            string   `json:"source"`
	Count             int      `json:"count"`
	ProcessingTime    string   `json:"processing_time"`
	Features          Features `json:"features"`
	Storage           Storage  `json:"storage"`
	AIEnabled         bool     `json:"ai_enabled,omitempty"`
	EncryptionEnabled bool     `json:"encryption_enabled,omitempty"`
}
