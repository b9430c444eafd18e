package career

import "time"

// DateType distinguishes single-day entries from date ranges.
type DateType string

const (
	DateSingle DateType = "single"
	DateRange  DateType = "range"
)

// Valid categories.
var Categories = map[string]bool{
	"choreography":  true,
	"performance":   true,
	"advertisement": true,
	"tv":            true,
	"workshop":      true,
	"other":         true,
}

// Entry is an achievement record owned by exactly one account.
type Entry struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Category    string     `json:"category"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Country     string     `json:"country"`
	DateType    DateType   `json:"date_type"`
	SingleDate  *time.Time `json:"single_date,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsFeatured  bool       `json:"is_featured"`
	VideoURL    string     `json:"video_url"`
	PosterURL   string     `json:"poster_url"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DateKey renders the entry's date in a stable form: the single date, or
// start..end for ranges. Missing dates render as empty strings.
func (e *Entry) DateKey() string {
	if e.DateType == DateRange {
		return formatDate(e.StartDate) + ".." + formatDate(e.EndDate)
	}
	return formatDate(e.SingleDate)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// EntryInput holds the writable fields of an entry.
type EntryInput struct {
	Category    string     `json:"category" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=4000"`
	Country     string     `json:"country" validate:"max=100"`
	DateType    DateType   `json:"date_type" validate:"required,oneof=single range"`
	SingleDate  *time.Time `json:"single_date,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsFeatured  bool       `json:"is_featured"`
	VideoURL    string     `json:"video_url" validate:"omitempty,url"`
	PosterURL   string     `json:"poster_url" validate:"omitempty,url"`
}

// FromEntry copies the writable fields of e.
func FromEntry(e *Entry) EntryInput {
	return EntryInput{
		Category:    e.Category,
		Title:       e.Title,
		Description: e.Description,
		Country:     e.Country,
		DateType:    e.DateType,
		SingleDate:  e.SingleDate,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		IsFeatured:  e.IsFeatured,
		VideoURL:    e.VideoURL,
		PosterURL:   e.PosterURL,
	}
}
