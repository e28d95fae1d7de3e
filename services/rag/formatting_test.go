package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectDetailMode(t *testing.T) {
	assert.True(t, DetectDetailMode("Расскажи подробнее про баню"))
	assert.True(t, DetectDetailMode("дай полностью все детали"))
	assert.True(t, DetectDetailMode("где баня? когда завтрак?"))
	assert.True(t, DetectDetailMode("расскажи про баню и сауну и бассейн"))
	assert.False(t, DetectDetailMode("что по ценам?"))
	assert.False(t, DetectDetailMode("есть ли баня и сауна?"))
}

func TestPostprocessAnswerStripsMarkup(t *testing.T) {
	got := PostprocessAnswer("## Баня\n**Баня** работает ежедневно.\n\n\n\nЗапись у администратора.", true)
	assert.Equal(t, "Баня\nБаня работает ежедневно.\n\nЗапись у администратора.", got)
}

func TestPostprocessAnswerBriefModeTrims(t *testing.T) {
	long := "Один. Два. Три. Четыре. Пять. Шесть."
	assert.Equal(t, "Один. Два. Три. Четыре.", PostprocessAnswer(long, false))
	assert.Equal(t, long, PostprocessAnswer(long, true))

	// Bullet lists are never trimmed.
	bullets := "• первый факт\n• второй факт"
	assert.Equal(t, bullets, PostprocessAnswer(bullets, false))
}

func TestFinalizeShortAnswer(t *testing.T) {
	got := FinalizeShortAnswer("Баня работает ежедневно")
	assert.Equal(t, "Баня работает ежедневно. "+followUpOffer, got)

	// The standing offer is not duplicated.
	assert.Equal(t, got, FinalizeShortAnswer(got))

	empty := FinalizeShortAnswer("  ")
	assert.Contains(t, empty, "Информации пока нет")
	assert.Contains(t, empty, followUpOffer)
}
