package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/sitevoice/fieldreport/internal/entity"
)

// Header carries the identity line inputs. Everything the renderer needs is
// passed in; nothing is read from clocks or stores, so output is
// byte-deterministic for identical input.
type Header struct {
	ReportID   string
	SiteName   string
	ReportDate time.Time
}

// Section titles, fixed order. Downstream export consumes these verbatim.
const (
	sectionWork       = "WORK PERFORMED"
	sectionDeliveries = "DELIVERIES"
	sectionDelays     = "DELAYS"
	sectionSafety     = "SAFETY NOTES"
	sectionTranscript = "TRANSCRIPT"

	placeholderRow  = "  (none reported)"
	placeholderCell = "-"
)

// Summary renders the canonical plain-text report. Inputs are treated as
// already normalized; rendering never fails. A nil extraction renders the
// same as an empty one.
func Summary(h Header, data *entity.ExtractedData, transcript string) string {
	if data == nil {
		data = entity.EmptyExtractedData()
	}

	var b strings.Builder
	b.WriteString("DAILY CONSTRUCTION REPORT\n")
	fmt.Fprintf(&b, "Report: %s\n", h.ReportID)
	fmt.Fprintf(&b, "Date: %s\n", h.ReportDate.UTC().Format("2006-01-02"))
	if h.SiteName != "" {
		fmt.Fprintf(&b, "Site: %s\n", h.SiteName)
	}
	b.WriteString("\n")

	b.WriteString(sectionWork + "\n")
	if len(data.WorkPerformed) == 0 {
		b.WriteString(placeholderRow + "\n")
	} else {
		fmt.Fprintf(&b, "  %-24s %-32s %s\n", "Subcontractor", "Task", "Crew")
		for _, w := range data.WorkPerformed {
			fmt.Fprintf(&b, "  %-24s %-32s %s\n", cell(w.Subcontractor), cell(w.Task), crewCell(w.CrewSize))
		}
	}
	b.WriteString("\n")

	b.WriteString(sectionDeliveries + "\n")
	if len(data.Deliveries) == 0 {
		b.WriteString(placeholderRow + "\n")
	} else {
		fmt.Fprintf(&b, "  %-24s %s\n", "Material", "Status")
		for _, d := range data.Deliveries {
			fmt.Fprintf(&b, "  %-24s %s\n", cell(d.Material), cell(d.Status))
		}
	}
	b.WriteString("\n")

	b.WriteString(sectionDelays + "\n")
	if len(data.Delays) == 0 {
		b.WriteString(placeholderRow + "\n")
	} else {
		fmt.Fprintf(&b, "  %-32s %s\n", "Reason", "Duration")
		for _, d := range data.Delays {
			fmt.Fprintf(&b, "  %-32s %s\n", cell(d.Reason), cell(d.Duration))
		}
	}
	b.WriteString("\n")

	b.WriteString(sectionSafety + "\n")
	if data.SafetyNotes == nil || strings.TrimSpace(*data.SafetyNotes) == "" {
		b.WriteString("None\n")
	} else {
		b.WriteString(strings.TrimSpace(*data.SafetyNotes) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionTranscript + "\n")
	b.WriteString(transcript)
	if !strings.HasSuffix(transcript, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// SectionTitles returns the fixed section headers in render order.
func SectionTitles() []string {
	return []string{sectionWork, sectionDeliveries, sectionDelays, sectionSafety, sectionTranscript}
}

func cell(s *string) string {
	if s == nil || *s == "" {
		return placeholderCell
	}
	return *s
}

func crewCell(n *int) string {
	if n == nil {
		return placeholderCell
	}
	return fmt.Sprintf("%d", *n)
}
