package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"usadba/models"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1 000 ₽", FormatMoney(1000, "RUB"))
	assert.Equal(t, "12 500 ₽", FormatMoney(12500, ""))
	assert.Equal(t, "999 ₽", FormatMoney(999, "rub"))
	assert.Equal(t, "1 234 567 ₽", FormatMoney(1234567, "RUB"))
	assert.Equal(t, "200 EUR", FormatMoney(200, "EUR"))
}

func TestFormatDateDDMM(t *testing.T) {
	assert.Equal(t, "19.12", FormatDateDDMM("2024-12-19"))
	assert.Equal(t, "oops", FormatDateDDMM("oops"))
}

func TestFormatQuoteBlockTail(t *testing.T) {
	nights := 2
	adults := 2
	children := 1
	ctx := &models.BookingContext{
		CheckIn:  "2024-12-19",
		CheckOut: "2024-12-21",
		Nights:   &nights,
		Adults:   &adults,
		Children: &children,
	}
	area := 32.0
	offers := []models.Quote{
		{RoomName: "Стандарт", TotalPrice: 4000, Currency: "RUB", RoomArea: &area, BreakfastIncluded: true},
		{RoomName: "Люкс", TotalPrice: 9000, Currency: "RUB"},
		{RoomName: "Коттедж", TotalPrice: 15000, Currency: "RUB"},
	}

	block := FormatQuoteBlock(ctx, offers, 2)
	assert.Contains(t, block, "На даты 19.12–21.12 (2 ночи) для 2 взрослых и 1 детей доступны варианты:")
	assert.Contains(t, block, "🏠 Стандарт")
	assert.Contains(t, block, "— 32 м²")
	assert.Contains(t, block, "— завтрак включён")
	assert.Contains(t, block, "…и ещё 1 вариантов. Сказать \"покажи ещё\"?")
	assert.Contains(t, block, "Нужно оформить бронирование?")
	assert.NotContains(t, block, "Коттедж")
}

func TestFormatMoreOffersLastPage(t *testing.T) {
	offers := []models.Quote{
		{RoomName: "Стандарт", TotalPrice: 4000, Currency: "RUB"},
		{RoomName: "Люкс", TotalPrice: 9000, Currency: "RUB"},
	}

	text, consumed := FormatMoreOffers(offers, 3)
	assert.Equal(t, 2, consumed)
	assert.Contains(t, text, "Ещё варианты:")
	assert.Contains(t, text, "Это все доступные варианты.")
}

func TestFormatMoreOffersMoreRemaining(t *testing.T) {
	text, consumed := FormatMoreOffers(sampleOffers(5), 3)
	assert.Equal(t, 3, consumed)
	assert.Contains(t, text, "…и ещё 2 вариантов")
}

func TestSelectMinOfferPerRoomType(t *testing.T) {
	offers := []models.Quote{
		{RoomName: "A", TotalPrice: 10},
		{RoomName: "B", TotalPrice: 5},
		{RoomName: "A", TotalPrice: 7},
	}
	result := SelectMinOfferPerRoomType(offers)
	assert.Len(t, result, 2)
	assert.Equal(t, "A", result[0].RoomName)
	assert.Equal(t, float64(7), result[0].TotalPrice)
	assert.Equal(t, "B", result[1].RoomName)
}
