package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/sitevoice/fieldreport/constants"
)

// Report represents one voice-to-report job for data transfer between layers.
type Report struct {
	ID             uuid.UUID                `json:"id"`
	SiteName       string                   `json:"site_name"`
	AudioKey       string                   `json:"audio_key"`
	Status         constants.ReportStatus   `json:"status"`
	TranscriptText string                   `json:"transcript_text"`
	Extracted      *ExtractedData           `json:"extracted,omitempty"`
	SummaryText    string                   `json:"summary_text"`
	ErrorMessage   *string                  `json:"error_message,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// WorkItem is one crew/task line extracted from the transcript.
type WorkItem struct {
	Subcontractor *string `json:"subcontractor"`
	Task          *string `json:"task"`
	CrewSize      *int    `json:"crewSize"`
}

// Delivery is one material delivery mention.
type Delivery struct {
	Material *string `json:"material"`
	Status   *string `json:"status"`
}

// Delay is one schedule-impact mention.
type Delay struct {
	Reason   *string `json:"reason"`
	Duration *string `json:"duration"`
}

// ExtractedData is the normalized structured output of the extraction stage.
// Collections are never nil after normalization; absent input defaults to
// empty slices so the JSON round-trips as [] rather than null.
type ExtractedData struct {
	WorkPerformed []WorkItem `json:"workPerformed"`
	Deliveries    []Delivery `json:"deliveries"`
	Delays        []Delay    `json:"delays"`
	SafetyNotes   *string    `json:"safetyNotes"`
}

// EmptyExtractedData returns the zero-content value with collections allocated.
func EmptyExtractedData() *ExtractedData {
	return &ExtractedData{
		WorkPerformed: []WorkItem{},
		Deliveries:    []Delivery{},
		Delays:        []Delay{},
	}
}
