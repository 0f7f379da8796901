package constants

// ReportStatus is the canonical status for rows in reports.
type ReportStatus string

// Stable values (store these exact strings in DB).
const (
	StatusUploading  ReportStatus = "UPLOADING"  // record created, waiting for audio upload
	StatusProcessing ReportStatus = "PROCESSING" // pipeline attempt in progress
	StatusReady      ReportStatus = "READY"      // transcript + extraction + summary persisted
	StatusFailed     ReportStatus = "FAILED"     // terminal for this attempt; resubmission re-enters PROCESSING
)

// IsTerminal reports whether a status ends a processing attempt.
func (s ReportStatus) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}
