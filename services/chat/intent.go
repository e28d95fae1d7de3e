// Package chat routes user turns between the booking dialogue and the
// knowledge pipeline and assembles the final reply.
package chat

import (
	"regexp"
	"strings"

	"usadba/models"
)

// Intents produced by detection, in routing priority order.
const (
	IntentBookingCalculation = "booking_calculation"
	IntentKnowledgeLookup    = "knowledge_lookup"
	IntentBookingQuote       = "booking_quote"
	IntentLodging            = "lodging"
	IntentGeneral            = "general"
)

var bookingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`забронировать`),
	regexp.MustCompile(`бронир`),
	regexp.MustCompile(`вариант[аы]? на даты`),
	regexp.MustCompile(`дата (заезда|выезда)`),
}

var bookingCalcPatterns = []*regexp.Regexp{
	regexp.MustCompile(`заезд`),
	regexp.MustCompile(`выезд`),
	regexp.MustCompile(`на \d+\s*(?:ноч|дн)`),
	regexp.MustCompile(`ноч(и|ей)`),
	regexp.MustCompile(`стоимость проживания`),
	regexp.MustCompile(`брон`),
	regexp.MustCompile(`забронировать`),
}

var knowledgePatterns = []*regexp.Regexp{
	regexp.MustCompile(`поиск по базе`),
	regexp.MustCompile(`покажи .*баз[ае]`),
	regexp.MustCompile(`что есть в базе`),
	regexp.MustCompile(`из базы знаний`),
}

var priceMarkers = []string{
	"сколько стоит", "цена", "стоимость", "рассчитай", "посчитай",
	"тариф", "стоимость проживания",
}

var lodgingKeywords = []string{
	"размещение", "проживание", "домик", "домики", "коттедж", "коттеджи",
	"номер", "номера", "вместимость", "цена", "стоимость", "тариф",
	"тарифы", "категори", "тип", "типы",
}

// DetectIntent classifies a message. Extracted booking entities push the
// classification toward the calculation flow even without explicit keywords.
func DetectIntent(text string, entities models.BookingEntities) string {
	normalized := strings.ToLower(text)

	hasPriceMarkers := false
	for _, marker := range priceMarkers {
		if strings.Contains(normalized, marker) {
			hasPriceMarkers = true
			break
		}
	}
	hasDates := entities.CheckIn != "" || entities.CheckOut != "" || entities.Nights != nil
	hasCalcMarkers := matchesAny(normalized, bookingCalcPatterns)

	if hasPriceMarkers || hasDates || hasCalcMarkers {
		return IntentBookingCalculation
	}
	if matchesAny(normalized, knowledgePatterns) {
		return IntentKnowledgeLookup
	}
	if matchesAny(normalized, bookingPatterns) {
		return IntentBookingQuote
	}
	for _, keyword := range lodgingKeywords {
		if strings.Contains(normalized, keyword) {
			return IntentLodging
		}
	}
	return IntentGeneral
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}
