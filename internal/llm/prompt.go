package llm

import "strings"

// maxTranscriptChars caps how much transcript we send; field recordings are
// short but a stuck dictation app can produce very long ones.
const maxTranscriptChars = 6000

// BuildSystemPrompt returns the fixed extraction instruction. Biased toward
// construction-report vocabulary; the shape mirrors the JSON schema.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a construction daily report parser. Return ONLY a JSON object, no prose.",
		"The object has exactly these keys:",
		"'workPerformed': array of objects {\"subcontractor\", \"task\", \"crewSize\"}: one entry per crew or subcontractor activity mentioned (e.g. masonry, framing, electrical rough-in). crewSize is the number of workers, as an integer, or null if not stated.",
		"'deliveries': array of objects {\"material\", \"status\"}: materials arriving on site (concrete, lumber, rebar, drywall) and whether they arrived, were late, or were missed.",
		"'delays': array of objects {\"reason\", \"duration\"}: anything that cost time (weather, late deliveries, inspections, equipment breakdowns) with the stated duration.",
		"'safetyNotes': a single string with any safety observations or incidents, or null if none were mentioned.",
		"Use null for any field the recording does not state. Use empty arrays when a category has no entries.",
		"Do not invent subcontractor names, quantities, or durations that are not in the transcript.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the transcript, truncated to a sane bound.
func BuildUserPrompt(transcript string) string {
	t := strings.TrimSpace(transcript)
	var b strings.Builder
	b.WriteString("Field recording transcript:\n")
	if len(t) > maxTranscriptChars {
		b.WriteString(t[:maxTranscriptChars])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(t)
	}
	return b.String()
}
