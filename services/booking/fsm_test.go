package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usadba/config"
	"usadba/models"
)

type fakeQuotes struct {
	offers     []models.Quote
	err        error
	calls      int
	lastIn     string
	lastOut    string
	lastGuests models.Guests
}

func (f *fakeQuotes) GetQuotes(_ context.Context, checkIn, checkOut string, guests models.Guests) ([]models.Quote, error) {
	f.calls++
	f.lastIn = checkIn
	f.lastOut = checkOut
	f.lastGuests = guests
	return f.offers, f.err
}

func testConfig() config.Config {
	return config.Config{
		ShownOffers: 3,
		MaxOptions:  6,
		BookingURL:  "https://usadba4.ru/bronirovanie/",
	}
}

func testClock() time.Time {
	return time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)
}

func newTestEngine(quotes QuoteFetcher) *Engine {
	return NewEngine(quotes, testConfig()).WithClock(testClock)
}

// turn mirrors the composer flow: merge whatever the message yields, then
// advance the dialogue.
func turn(e *Engine, bctx *models.BookingContext, text string) string {
	parsed := NewParsedMessage(text)
	ApplyEntities(bctx, ExtractEntities(text, testClock()))
	ApplyMessage(bctx, parsed, testClock())
	return e.ProcessMessage(context.Background(), "test-session", text, bctx, parsed, map[string]any{})
}

func sampleOffers(n int) []models.Quote {
	offers := make([]models.Quote, 0, n)
	for i := 0; i < n; i++ {
		offers = append(offers, models.Quote{
			RoomName:   fmt.Sprintf("Номер %d", i+1),
			TotalPrice: float64((i + 1) * 1000),
			Currency:   "RUB",
		})
	}
	return offers
}

func TestFullDialogueToQuote(t *testing.T) {
	quotes := &fakeQuotes{offers: sampleOffers(2)}
	e := newTestEngine(quotes)
	bctx := models.NewBookingContext()

	reply := turn(e, bctx, "Хочу заехать 19 декабря на 2 ночи, нас двое взрослых")
	assert.Contains(t, reply, "Сколько детей")
	assert.Contains(t, reply, "заезд 19 декабря")
	assert.Contains(t, reply, "ночей 2")
	assert.Contains(t, reply, "взрослых 2")

	reply = turn(e, bctx, "нет")
	assert.Equal(t, models.StateAwaitingDecision, bctx.State)
	assert.Contains(t, reply, "На даты 19.12–21.12")
	assert.Contains(t, reply, "Номер 1")
	assert.Contains(t, reply, "1 000 ₽")
	assert.Contains(t, reply, "Нужно оформить бронирование?")

	assert.Equal(t, 1, quotes.calls)
	assert.Equal(t, "2024-12-19", quotes.lastIn)
	assert.Equal(t, "2024-12-21", quotes.lastOut)
	assert.Equal(t, 2, quotes.lastGuests.Adults)
	assert.Equal(t, 0, quotes.lastGuests.Children)
}

func TestCheckoutBeforeCheckinRejected(t *testing.T) {
	quotes := &fakeQuotes{offers: sampleOffers(1)}
	e := newTestEngine(quotes)
	bctx := models.NewBookingContext()

	reply := turn(e, bctx, "заезд 10.02.2025")
	assert.Contains(t, reply, "Сколько ночей")

	// A checkout earlier than the checkin never fills the slot; the guest
	// gets told why instead of a bare re-ask.
	reply = turn(e, bctx, "08.02.2025")
	assert.Contains(t, reply, "Дата выезда должна быть позже даты заезда")
	assert.Empty(t, bctx.CheckOut)

	reply = turn(e, bctx, "13.02.2025")
	assert.Equal(t, "2025-02-13", bctx.CheckOut)
	assert.Contains(t, reply, "Сколько взрослых")

	reply = turn(e, bctx, "двое")
	assert.Contains(t, reply, "Сколько детей")

	reply = turn(e, bctx, "2 детей")
	assert.Contains(t, reply, "возраст")

	turn(e, bctx, "5 и 7")
	assert.Equal(t, models.StateAwaitingDecision, bctx.State)
	assert.Equal(t, 1, quotes.calls)
	assert.Equal(t, "2025-02-10", quotes.lastIn)
	assert.Equal(t, "2025-02-13", quotes.lastOut)
	assert.Equal(t, []int{5, 7}, quotes.lastGuests.ChildrenAges)
	require.NotNil(t, bctx.Nights)
	assert.Equal(t, 3, *bctx.Nights)
}

func TestBareNumberNotConsumedTwice(t *testing.T) {
	e := newTestEngine(&fakeQuotes{})
	bctx := models.NewBookingContext()

	turn(e, bctx, "заезд 19 декабря")
	reply := turn(e, bctx, "2")

	// The bare number answered the nights question; adults must be asked.
	require.NotNil(t, bctx.Nights)
	assert.Equal(t, 2, *bctx.Nights)
	assert.Nil(t, bctx.Adults)
	assert.Contains(t, reply, "Сколько взрослых")
}

func TestShowMorePagination(t *testing.T) {
	quotes := &fakeQuotes{offers: sampleOffers(8)}
	e := newTestEngine(quotes)
	bctx := models.NewBookingContext()

	turn(e, bctx, "заезд 19 декабря на 2 ночи, 2 взрослых")
	reply := turn(e, bctx, "0")

	// Stored offers are capped at MaxOptions, three shown initially.
	assert.Len(t, bctx.Offers, 6)
	assert.Equal(t, 3, bctx.LastOfferIndex)
	assert.Contains(t, reply, "…и ещё 3 вариантов")

	reply = turn(e, bctx, "покажи ещё")
	assert.Contains(t, reply, "Ещё варианты:")
	assert.Contains(t, reply, "Это все доступные варианты.")
	assert.Equal(t, 6, bctx.LastOfferIndex)

	reply = turn(e, bctx, "покажи ещё")
	assert.Contains(t, reply, "уже видели все доступные предложения")
}

func TestCheapestOfferPerRoomTypeWins(t *testing.T) {
	offers := []models.Quote{
		{RoomName: "Стандарт", TotalPrice: 5000, Currency: "RUB"},
		{RoomName: "Люкс", TotalPrice: 9000, Currency: "RUB"},
		{RoomName: "Стандарт", TotalPrice: 4000, Currency: "RUB"},
	}
	quotes := &fakeQuotes{offers: offers}
	e := newTestEngine(quotes)
	bctx := models.NewBookingContext()

	turn(e, bctx, "заезд 19 декабря на 2 ночи, 2 взрослых")
	turn(e, bctx, "0")

	require.Len(t, bctx.Offers, 2)
	assert.Equal(t, "Стандарт", bctx.Offers[0].RoomName)
	assert.Equal(t, float64(4000), bctx.Offers[0].TotalPrice)
	assert.Equal(t, "Люкс", bctx.Offers[1].RoomName)
}

func TestCancelCommand(t *testing.T) {
	e := newTestEngine(&fakeQuotes{})
	bctx := models.NewBookingContext()

	turn(e, bctx, "заезд 19 декабря")
	reply := turn(e, bctx, "отмена")

	assert.Equal(t, models.StateCancelled, bctx.State)
	assert.Contains(t, reply, "Отменяю бронирование")
}

func TestBackCommand(t *testing.T) {
	e := newTestEngine(&fakeQuotes{})
	bctx := models.NewBookingContext()

	turn(e, bctx, "заезд 19 декабря на 2 ночи")
	assert.Equal(t, models.StateAskAdults, bctx.State)

	reply := turn(e, bctx, "назад")
	assert.Nil(t, bctx.Nights)
	assert.Contains(t, reply, "Сколько ночей")
}

func TestLoadContextResetsInconsistentState(t *testing.T) {
	e := newTestEngine(&fakeQuotes{})

	stale := &models.BookingContext{State: models.StateAskAdults}
	loaded := e.LoadContext(stale)
	assert.Equal(t, models.StateAskCheckin, loaded.State)

	assert.Equal(t, models.StateAskCheckin, e.LoadContext(nil).State)
}

func TestPostQuoteBookingIntent(t *testing.T) {
	quotes := &fakeQuotes{offers: sampleOffers(2)}
	e := newTestEngine(quotes)
	bctx := models.NewBookingContext()

	turn(e, bctx, "заезд 19 декабря на 2 ночи, 2 взрослых")
	turn(e, bctx, "0")

	reply := turn(e, bctx, "берём люкс")
	assert.Equal(t, models.StateDone, bctx.State)
	assert.Equal(t, "люкс", bctx.RoomType)
	assert.Contains(t, reply, "Вы выбрали тип: люкс.")
	assert.Contains(t, reply, "https://usadba4.ru/bronirovanie/")
}

func TestPostQuoteGeneralQuestionDelegated(t *testing.T) {
	quotes := &fakeQuotes{offers: sampleOffers(2)}
	e := newTestEngine(quotes)
	bctx := models.NewBookingContext()

	turn(e, bctx, "заезд 19 декабря на 2 ночи, 2 взрослых")
	turn(e, bctx, "0")

	reply := turn(e, bctx, "а есть ли баня?")
	assert.Equal(t, DelegatePrefix+"а есть ли баня?", reply)
	assert.Equal(t, models.StateAwaitingDecision, bctx.State)
}

func TestPostQuoteDateChangeRestartsDates(t *testing.T) {
	quotes := &fakeQuotes{offers: sampleOffers(2)}
	e := newTestEngine(quotes)
	bctx := models.NewBookingContext()

	turn(e, bctx, "заезд 19 декабря на 2 ночи, 2 взрослых")
	turn(e, bctx, "0")

	reply := turn(e, bctx, "хочу другие даты")
	assert.Equal(t, models.StateAskCheckin, bctx.State)
	assert.Empty(t, bctx.CheckIn)
	assert.Nil(t, bctx.Nights)
	assert.Contains(t, reply, "На какую дату планируете заезд?")
}

func TestAvailabilityErrorRestartsDialogue(t *testing.T) {
	quotes := &fakeQuotes{err: fmt.Errorf("pms unavailable")}
	e := newTestEngine(quotes)
	bctx := models.NewBookingContext()

	turn(e, bctx, "заезд 19 декабря на 2 ночи, 2 взрослых")
	reply := turn(e, bctx, "0")

	assert.Equal(t, models.StateAskCheckin, bctx.State)
	assert.Contains(t, reply, "Не получилось получить расчёт")
}

func TestNoOffersEndsDialogue(t *testing.T) {
	quotes := &fakeQuotes{}
	e := newTestEngine(quotes)
	bctx := models.NewBookingContext()

	turn(e, bctx, "заезд 19 декабря на 2 ночи, 2 взрослых")
	reply := turn(e, bctx, "0")

	assert.Equal(t, models.StateDone, bctx.State)
	assert.Contains(t, reply, "нет доступных вариантов")
}

func TestIsGeneralQuestion(t *testing.T) {
	assert.True(t, IsGeneralQuestion("есть ли у вас баня?"))
	assert.True(t, IsGeneralQuestion("расскажи про завтрак"))
	assert.True(t, IsGeneralQuestion("парковка есть?"))
	assert.False(t, IsGeneralQuestion("2"))
	assert.False(t, IsGeneralQuestion("19 декабря"))
}
