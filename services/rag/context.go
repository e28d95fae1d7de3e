package rag

import (
	"strings"

	"usadba/models"
)

// BuildContext renders the evidence sections handed to the generation
// collaborator: FAQ pairs first, then facts, then file descriptions. Sections
// are added line by line until the character budget is exhausted; a section
// whose next line would overflow is cut, never truncated mid-line.
func BuildContext(factsHits, filesHits []models.EvidenceHit, faqHits []models.FAQHit, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 4000
	}
	var builder []string

	var faqLines []string
	for _, hit := range faqHits {
		if hit.Question == "" || hit.Answer == "" {
			continue
		}
		faqLines = append(faqLines, "- Q: "+hit.Question+"\n  A: "+hit.Answer)
	}
	builder = collectSection(builder, "### FAQ точное совпадение", faqLines, maxChars)
	builder = collectSection(builder, "### Контекст (факты)", hitLines(factsHits), maxChars)
	builder = collectSection(builder, "### Контекст (описания)", hitLines(filesHits), maxChars)

	return strings.Join(builder, "\n")
}

func hitLines(hits []models.EvidenceHit) []string {
	lines := make([]string, 0, len(hits))
	for _, hit := range hits {
		prefix := ""
		if hit.Title != "" {
			prefix = hit.Title + ": "
		}
		lines = append(lines, strings.TrimSpace("- "+prefix+hit.Text+sourceSuffix(hit)))
	}
	return lines
}

func sourceSuffix(hit models.EvidenceHit) string {
	var parts []string
	if hit.Source != "" {
		parts = append(parts, "source="+hit.Source)
	}
	if hit.Type != "" {
		parts = append(parts, "type="+hit.Type)
	}
	if hit.EntityID != "" {
		parts = append(parts, "id="+hit.EntityID)
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, " ") + "]"
}

func collectSection(builder []string, title string, lines []string, maxChars int) []string {
	if len(lines) == 0 {
		return builder
	}
	for _, chunk := range append([]string{title}, lines...) {
		if chunk == "" {
			continue
		}
		used := 0
		for _, line := range builder {
			used += len(line)
		}
		if used+len(builder)+len(chunk) > maxChars {
			return builder
		}
		builder = append(builder, chunk)
	}
	return builder
}
