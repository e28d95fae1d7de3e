package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"usadba/models"
)

func sampleEvidence() ([]models.EvidenceHit, []models.EvidenceHit, []models.FAQHit) {
	facts := []models.EvidenceHit{
		{Title: "Баня", Text: "Баня на дровах, до 6 гостей.", Source: "knowledge.md", Type: "fact"},
	}
	files := []models.EvidenceHit{
		{Title: "Коттедж", Text: "Двухэтажный коттедж с камином."},
	}
	faq := []models.FAQHit{
		{Question: "Есть ли баня?", Answer: "Да, баня на дровах."},
	}
	return facts, files, faq
}

func TestBuildContextSections(t *testing.T) {
	facts, files, faq := sampleEvidence()
	got := BuildContext(facts, files, faq, 0)

	assert.Contains(t, got, "### FAQ точное совпадение")
	assert.Contains(t, got, "- Q: Есть ли баня?\n  A: Да, баня на дровах.")
	assert.Contains(t, got, "### Контекст (факты)")
	assert.Contains(t, got, "- Баня: Баня на дровах, до 6 гостей. [source=knowledge.md type=fact]")
	assert.Contains(t, got, "### Контекст (описания)")
	assert.Contains(t, got, "- Коттедж: Двухэтажный коттедж с камином.")
}

func TestBuildContextHonorsBudget(t *testing.T) {
	facts, files, faq := sampleEvidence()

	// A budget too small for even a section title yields nothing.
	assert.Empty(t, BuildContext(facts, files, faq, 10))

	// A mid-sized budget keeps the leading sections and drops the tail.
	got := BuildContext(facts, files, faq, 200)
	assert.Contains(t, got, "### FAQ точное совпадение")
	assert.NotContains(t, got, "### Контекст (описания)")
}

func TestBuildContextSkipsIncompleteFAQ(t *testing.T) {
	faq := []models.FAQHit{{Question: "Вопрос без ответа"}}
	assert.Empty(t, BuildContext(nil, nil, faq, 0))
}
