package rag

import (
	"regexp"
	"strings"
)

const followUpOffer = "Если хотите — расскажу подробнее."

var (
	sentenceEndRe = regexp.MustCompile(`[.!?]\s+`)
	boldMarkRe    = regexp.MustCompile(`\*\*([^*]*)\*\*`)
	headingRe     = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

var detailMarkers = []string{
	"подробн", "деталь", "детали", "полност", "расскажи больше",
	"больше информации", "всё расскажи", "все расскажи",
}

// DetectDetailMode reports whether the user asked for an expanded answer:
// an explicit detail keyword, several questions in one message, or a
// multi-part request joined by connectors.
func DetectDetailMode(text string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range detailMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	if strings.Count(lowered, "?") >= 2 {
		return true
	}
	connectors := 0
	for _, connector := range []string{" и ", " или ", " а также "} {
		connectors += strings.Count(lowered, connector)
	}
	return connectors >= 2
}

// PostprocessAnswer strips LLM markup artifacts and, in brief mode, trims the
// answer to its leading sentences.
func PostprocessAnswer(answer string, detail bool) string {
	cleaned := strings.TrimSpace(answer)
	cleaned = boldMarkRe.ReplaceAllString(cleaned, "$1")
	cleaned = headingRe.ReplaceAllString(cleaned, "")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	if cleaned == "" {
		return cleaned
	}
	if detail {
		return cleaned
	}
	return trimToSentences(cleaned, 4)
}

// FinalizeShortAnswer trims to four sentences and appends the standing offer
// to elaborate.
func FinalizeShortAnswer(answer string) string {
	cleaned := strings.TrimSpace(answer)
	if cleaned == "" {
		return "Информации пока нет, но могу поискать ещё. " + followUpOffer
	}
	cleaned = trimToSentences(cleaned, 4)
	if !strings.HasSuffix(cleaned, ".") && !strings.HasSuffix(cleaned, "!") && !strings.HasSuffix(cleaned, "?") {
		cleaned += "."
	}
	if !strings.Contains(cleaned, followUpOffer) {
		cleaned += " " + followUpOffer
	}
	return cleaned
}

// trimToSentences keeps the first n sentences of single-paragraph text.
// Multi-line answers (bullet lists) are left alone.
func trimToSentences(text string, n int) string {
	if strings.Contains(text, "\n") {
		return text
	}
	var sentences []string
	rest := text
	for len(sentences) < n {
		loc := sentenceEndRe.FindStringIndex(rest)
		if loc == nil {
			sentences = append(sentences, strings.TrimSpace(rest))
			rest = ""
			break
		}
		sentences = append(sentences, strings.TrimSpace(rest[:loc[0]+1]))
		rest = rest[loc[1]:]
	}
	return strings.Join(sentences, " ")
}
