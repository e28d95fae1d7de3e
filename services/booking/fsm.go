package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"usadba/config"
	"usadba/models"
	"usadba/utils"
)

// DelegatePrefix marks an answer that the dialogue engine refuses to handle
// itself: the caller strips the prefix and routes the remainder through the
// general question pipeline.
const DelegatePrefix = "__DELEGATE_TO_GENERAL__"

// QuoteFetcher prices a stay against the availability collaborator.
type QuoteFetcher interface {
	GetQuotes(ctx context.Context, checkIn, checkOut string, guests models.Guests) ([]models.Quote, error)
}

var cancelCommands = map[string]bool{
	"отмена": true, "отменить": true, "отмени": true, "стоп": true, "cancel": true,
	"начать заново": true, "начнём заново": true, "начнем заново": true,
	"сброс": true, "сбросить": true,
}

var backCommands = map[string]bool{
	"назад": true, "вернись": true, "вернуться": true,
}

var bookingIntentTokens = []string{
	"забронировать", "бронировать", "оформляй", "оформляем", "оформляю",
	"берем", "берём", "возьми",
}

var showMoreTriggers = []string{
	"покажи все", "покажи всё", "показать все", "показать всё",
	"покажи больше", "показать больше", "покажи ещё", "покажи еще",
	"ещё варианты", "еще варианты", "другие варианты", "остальные", "все варианты",
}

var questionMarkers = []string{
	"есть ли", "есть", "можно ли", "можно", "как ", "где ", "когда ",
	"сколько стоит", "что включено", "какие ", "какой ", "какая ",
	"работает ли", "работает", "входит ли", "входит", "включён", "включен",
	"доступн", "предоставля", "предлага",
}

var serviceKeywords = []string{
	"баня", "сауна", "бассейн", "спа", "массаж",
	"еда", "питание", "ресторан", "кафе", "завтрак", "обед", "ужин",
	"меню", "кухня", "заказать еду", "доставка еды", "room service",
	"парковка", "стоянка", "wi-fi", "wifi", "вай-фай", "интернет",
	"детская", "площадка", "анимация", "развлечения",
	"трансфер", "такси", "аэропорт",
	"животные", "питомцы", "собака", "кошка", "с собакой",
	"курение", "курить", "балкон", "терраса",
	"кондиционер", "отопление", "камин",
	"велосипед", "прокат", "аренда",
	"экскурсии", "туры", "достопримечательности",
	"пляж", "река", "озеро", "рыбалка",
	"спортзал", "фитнес", "теннис",
	"прачечная", "химчистка", "глажка",
	"аптека", "магазин", "банкомат",
	"заезд ", "выезд ", "время заезда", "время выезда",
	"check-in", "check-out", "расчётный час",
}

// Engine drives the slot-filling booking dialogue. Stateless itself; all
// per-session state lives in the BookingContext the caller loads and saves.
type Engine struct {
	quotes QuoteFetcher
	cfg    config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine wires the dialogue engine to the availability collaborator.
func NewEngine(quotes QuoteFetcher, cfg config.Config) *Engine {
	return &Engine{
		quotes: quotes,
		cfg:    cfg,
		logger: utils.GetLogger(),
		now:    time.Now,
	}
}

// WithClock overrides the reference clock, for deterministic date parsing.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// LoadContext validates a persisted context. A state that presumes a known
// check-in date without one means the stored state is stale; the dialogue
// restarts from the first question rather than asking an unanswerable one.
func (e *Engine) LoadContext(ctx *models.BookingContext) *models.BookingContext {
	if ctx == nil {
		return models.NewBookingContext()
	}
	if ctx.Retries == nil {
		ctx.Retries = map[string]int{}
	}
	if ctx.State.RequiresCheckin() && ctx.CheckIn == "" {
		e.logger.Warn("booking context state requires checkin but it is missing, resetting",
			zap.Any("context", ctx.Compact()))
		return models.NewBookingContext()
	}
	return ctx
}

// IsCancelCommand reports whether the normalized input is a cancel command.
func IsCancelCommand(normalized string) bool { return cancelCommands[normalized] }

// IsBackCommand reports whether the normalized input is a back command.
func IsBackCommand(normalized string) bool { return backCommands[normalized] }

// ProcessMessage advances the dialogue by one user turn and returns the
// assistant reply (or a DelegatePrefix-marked passthrough).
func (e *Engine) ProcessMessage(
	ctx context.Context,
	sessionID string,
	text string,
	bctx *models.BookingContext,
	parsed *ParsedMessage,
	debug map[string]any,
) string {
	normalized := parsed.Lowered()

	if IsCancelCommand(normalized) {
		bctx.State = models.StateCancelled
		return "Отменяю бронирование. Если понадобится помощь, напишите."
	}

	if bctx.State == "" || bctx.State == models.StateDone || bctx.State == models.StateCancelled {
		bctx.State = models.StateAskCheckin
	}

	if IsBackCommand(normalized) {
		e.goBack(bctx)
	}

	if bctx.State.RequiresCheckin() && bctx.CheckIn == "" {
		e.logger.Warn("booking state requires checkin but it is missing, resetting",
			zap.String("sessionId", sessionID),
			zap.Any("context", bctx.Compact()))
		bctx.State = models.StateAskCheckin
	}

	e.logger.Info("booking fsm turn",
		zap.String("sessionId", sessionID),
		zap.String("state", string(bctx.State)),
		zap.Any("context", bctx.Compact()))

	return e.advance(ctx, bctx, text, parsed, debug)
}

func (e *Engine) goBack(bctx *models.BookingContext) {
	previous := previousState(bctx.State)
	switch previous {
	case models.StateAskCheckin:
		bctx.CheckIn = ""
		bctx.Nights = nil
		bctx.CheckOut = ""
	case models.StateAskNightsOrCheckout:
		bctx.Nights = nil
		bctx.CheckOut = ""
	case models.StateAskAdults:
		bctx.Adults = nil
	case models.StateAskChildrenCount:
		bctx.Children = nil
		bctx.ChildrenAges = nil
	case models.StateAskChildrenAges:
		bctx.ChildrenAges = nil
	}
	bctx.State = previous
}

func previousState(state models.BookingState) models.BookingState {
	for i, s := range models.StateOrder {
		if s == state {
			if i == 0 {
				return models.StateAskCheckin
			}
			return models.StateOrder[i-1]
		}
	}
	return models.StateAskCheckin
}

// advance walks forward through the states, consuming whatever the current
// message already answers, until a question must be asked or a terminal
// answer is produced. The consumed set keeps one number from answering two
// questions in the same turn.
func (e *Engine) advance(
	ctx context.Context,
	bctx *models.BookingContext,
	text string,
	parsed *ParsedMessage,
	debug map[string]any,
) string {
	state := bctx.State
	if state == "" {
		state = models.StateAskCheckin
	}
	consumed := map[string]bool{}
	if bctx.Nights != nil {
		consumed["nights"] = true
	}
	if bctx.Adults != nil {
		consumed["adults"] = true
	}

	for {
		switch state {
		case models.StateAskCheckin:
			bctx.State = models.StateAskCheckin
			if bctx.CheckIn != "" {
				state = models.StateAskNightsOrCheckout
				continue
			}
			if checkin := parsed.Checkin(e.now()); checkin != "" {
				bctx.CheckIn = checkin
				bctx.State = models.StateAskNightsOrCheckout
				state = models.StateAskNightsOrCheckout
				continue
			}
			return e.askWithRetry(bctx, models.StateAskCheckin, "На какую дату планируете заезд?")

		case models.StateAskNightsOrCheckout:
			bctx.State = models.StateAskNightsOrCheckout
			if bctx.CheckIn == "" {
				state = models.StateAskCheckin
				bctx.State = models.StateAskCheckin
				continue
			}
			if bctx.Nights != nil || bctx.CheckOut != "" {
				state = models.StateAskAdults
				continue
			}
			checkinDate, err := time.Parse(ISODate, bctx.CheckIn)
			if err != nil {
				e.logger.Warn("invalid stored checkin date, resetting", zap.String("checkin", bctx.CheckIn))
				bctx.CheckIn = ""
				bctx.State = models.StateAskCheckin
				state = models.StateAskCheckin
				continue
			}
			if nights := parsed.Nights(); nights != nil && *nights > 0 {
				bctx.Nights = nights
				consumed["nights"] = true
				state = models.StateAskAdults
				bctx.State = models.StateAskAdults
				continue
			}
			if candidate := parsed.Checkin(checkinDate); candidate != "" {
				checkoutDate, err := time.Parse(ISODate, candidate)
				if err == nil {
					if checkoutDate.After(checkinDate) {
						bctx.CheckOut = candidate
						state = models.StateAskAdults
						bctx.State = models.StateAskAdults
						continue
					}
					return e.askWithRetry(bctx, models.StateAskNightsOrCheckout,
						"Дата выезда должна быть позже даты заезда.")
				}
			}
			return e.askWithRetry(bctx, models.StateAskNightsOrCheckout,
				"Сколько ночей остаётесь или до какого числа?")

		case models.StateAskAdults:
			bctx.State = models.StateAskAdults
			if bctx.CheckIn == "" {
				state = models.StateAskCheckin
				bctx.State = models.StateAskCheckin
				continue
			}
			adultsFromText, childrenFromText := parsed.Guests()
			if adultsFromText != nil {
				bctx.Adults = adultsFromText
			}
			if childrenFromText != nil {
				bctx.Children = childrenFromText
				if *childrenFromText <= 0 {
					bctx.ChildrenAges = nil
				}
			}
			if bctx.Adults != nil {
				bctx.State = models.StateAskChildrenCount
				if bctx.Children == nil && childrenFromText == nil {
					return e.askWithRetry(bctx, models.StateAskChildrenCount,
						"Сколько детей? Если детей нет — напишите 0.")
				}
				state = models.StateAskChildrenCount
				continue
			}
			if adults := parsed.Adults(!consumed["nights"]); adults != nil {
				bctx.Adults = adults
				consumed["adults"] = true
				bctx.State = models.StateAskChildrenCount
				if bctx.Children == nil {
					return e.askWithRetry(bctx, models.StateAskChildrenCount,
						"Сколько детей? Если детей нет — напишите 0.")
				}
				state = models.StateAskChildrenCount
				continue
			}
			return e.askWithRetry(bctx, models.StateAskAdults, "Сколько взрослых едет?")

		case models.StateAskChildrenCount:
			bctx.State = models.StateAskChildrenCount
			adultsFromText, childrenFromText := parsed.Guests()
			if adultsFromText != nil {
				bctx.Adults = adultsFromText
			}
			if childrenFromText != nil {
				bctx.Children = childrenFromText
				if *childrenFromText <= 0 {
					bctx.ChildrenAges = nil
				}
			}
			if bctx.Children != nil {
				if *bctx.Children > 0 {
					if len(bctx.ChildrenAges) == *bctx.Children {
						state = models.StateCalculate
						continue
					}
					if !strings.Contains(parsed.Lowered(), "взросл") {
						if ages := parsed.ChildrenAges(bctx.Children); len(ages) > 0 {
							bctx.ChildrenAges = ages
							state = models.StateCalculate
							bctx.State = models.StateCalculate
							continue
						}
					}
					bctx.State = models.StateAskChildrenAges
					return e.askWithRetry(bctx, models.StateAskChildrenAges,
						"Уточните возраст детей (через запятую).")
				}
				state = models.StateCalculate
				continue
			}
			if children := parsed.ChildrenCount(); children != nil {
				bctx.Children = children
				if *children > 0 {
					bctx.State = models.StateAskChildrenAges
					return e.askWithRetry(bctx, models.StateAskChildrenAges,
						"Уточните возраст детей (через запятую).")
				}
				state = models.StateCalculate
				bctx.State = models.StateCalculate
				continue
			}
			return e.askWithRetry(bctx, models.StateAskChildrenCount,
				"Сколько детей? Если детей нет — напишите 0.")

		case models.StateAskChildrenAges:
			bctx.State = models.StateAskChildrenAges
			if bctx.Children == nil || *bctx.Children == 0 {
				state = models.StateCalculate
				continue
			}
			if len(bctx.ChildrenAges) == *bctx.Children {
				state = models.StateCalculate
				continue
			}
			if ages := parsed.ChildrenAges(bctx.Children); len(ages) > 0 {
				bctx.ChildrenAges = ages
				state = models.StateCalculate
				bctx.State = models.StateCalculate
				continue
			}
			return e.askWithRetry(bctx, models.StateAskChildrenAges,
				"Не услышал возраст детей, укажите числа через запятую.")

		case models.StateCalculate:
			bctx.State = models.StateCalculate
			return e.calculate(ctx, bctx, debug)

		case models.StateAwaitingDecision:
			bctx.State = models.StateAwaitingDecision
			return e.handlePostQuoteDecision(text, bctx, parsed)

		case models.StateConfirmBooking:
			bctx.State = models.StateConfirmBooking
			return e.handlePostQuoteDecision(text, bctx, parsed)

		default:
			return e.askWithRetry(bctx, models.StateAskCheckin, "На какую дату планируете заезд?")
		}
	}
}

func (e *Engine) askWithRetry(bctx *models.BookingContext, state models.BookingState, question string) string {
	bctx.Retries[string(state)]++
	return e.bookingPrompt(question, bctx)
}

func (e *Engine) bookingPrompt(question string, bctx *models.BookingContext) string {
	summary := e.bookingSummary(bctx)
	if summary == "" {
		return question
	}
	return "Понял: " + summary + ". " + question
}

func (e *Engine) bookingSummary(bctx *models.BookingContext) string {
	var fragments []string
	if bctx.CheckIn != "" {
		fragments = append(fragments, "заезд "+FormatDateRu(bctx.CheckIn))
	}
	if bctx.Nights != nil && *bctx.Nights > 0 {
		fragments = append(fragments, fmt.Sprintf("ночей %d", *bctx.Nights))
	} else if bctx.CheckOut != "" {
		fragments = append(fragments, "выезд "+FormatDateRu(bctx.CheckOut))
	}
	if bctx.Adults != nil {
		guests := fmt.Sprintf("взрослых %d", *bctx.Adults)
		if bctx.Children != nil {
			guests += fmt.Sprintf(", детей %d", *bctx.Children)
		}
		fragments = append(fragments, guests)
	}
	if bctx.RoomType != "" {
		fragments = append(fragments, "тип "+bctx.RoomType)
	}
	return strings.Join(fragments, ", ")
}

// calculate resolves checkout from nights (or nights from checkout), calls
// the availability collaborator, and renders the offers block. Invalid
// checkout answers bounce back to the nights question with the slot cleared.
func (e *Engine) calculate(ctx context.Context, bctx *models.BookingContext, debug map[string]any) string {
	if bctx.CheckIn == "" {
		bctx.State = models.StateAskCheckin
		return e.bookingPrompt("На какую дату планируете заезд?", bctx)
	}
	checkinDate, err := time.Parse(ISODate, bctx.CheckIn)
	if err != nil {
		bctx.CheckIn = ""
		bctx.State = models.StateAskCheckin
		return e.bookingPrompt("Укажите корректную дату заезда.", bctx)
	}

	switch {
	case bctx.Nights != nil && *bctx.Nights > 0:
		bctx.CheckOut = checkinDate.AddDate(0, 0, *bctx.Nights).Format(ISODate)
	case bctx.CheckOut != "":
		checkoutDate, err := time.Parse(ISODate, bctx.CheckOut)
		if err != nil {
			bctx.CheckOut = ""
			return e.askWithRetry(bctx, models.StateAskNightsOrCheckout,
				"Укажите дату выезда или количество ночей.")
		}
		if !checkoutDate.After(checkinDate) {
			bctx.CheckOut = ""
			return e.askWithRetry(bctx, models.StateAskNightsOrCheckout,
				"Дата выезда должна быть позже даты заезда.")
		}
		nights := int(checkoutDate.Sub(checkinDate).Hours() / 24)
		bctx.Nights = &nights
	default:
		return e.askWithRetry(bctx, models.StateAskNightsOrCheckout,
			"Сколько ночей остаётесь или до какого числа?")
	}

	if bctx.Adults == nil {
		bctx.State = models.StateAskAdults
		return e.askWithRetry(bctx, models.StateAskAdults, "Сколько взрослых едет?")
	}
	if bctx.Children != nil && *bctx.Children > 0 && len(bctx.ChildrenAges) == 0 {
		bctx.State = models.StateAskChildrenAges
		return e.askWithRetry(bctx, models.StateAskChildrenAges,
			"Не услышал возраст детей, укажите числа через запятую.")
	}

	guests := bctx.GuestParty()
	started := time.Now()
	offers, err := e.quotes.GetQuotes(ctx, bctx.CheckIn, bctx.CheckOut, *guests)
	debug["shelter_called"] = true
	debug["shelter_latency_ms"] = int(time.Since(started).Milliseconds())
	if err != nil {
		debug["shelter_error"] = err.Error()
		e.logger.Error("availability request failed", zap.Error(err))
		bctx.State = models.StateAskCheckin
		return "Не получилось получить расчёт, давайте попробуем ещё раз. На какую дату планируете заезд?"
	}

	if len(offers) == 0 {
		bctx.State = models.StateDone
		return "К сожалению, нет доступных вариантов на выбранные даты. Если хотите изменить параметры, скажите \"начнём заново\"."
	}

	unique := SelectMinOfferPerRoomType(offers)
	sorted := make([]models.Quote, len(unique))
	copy(sorted, unique)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalPrice < sorted[j].TotalPrice
	})
	maxOptions := e.cfg.MaxOptions
	if maxOptions <= 0 {
		maxOptions = 6
	}
	if len(sorted) > maxOptions {
		sorted = sorted[:maxOptions]
	}
	bctx.Offers = sorted
	shown := e.cfg.ShownOffers
	if shown <= 0 {
		shown = 3
	}
	if shown > len(sorted) {
		shown = len(sorted)
	}
	bctx.LastOfferIndex = shown

	bctx.State = models.StateAwaitingDecision
	return FormatQuoteBlock(bctx, sorted, shown)
}

// IsGeneralQuestion reports whether the message is a question about services
// or amenities rather than a booking answer, so it can be delegated to the
// retrieval pipeline mid-dialogue.
func IsGeneralQuestion(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if len([]rune(normalized)) < 5 {
		return false
	}
	hasQuestion := containsAny(normalized, questionMarkers)
	hasService := containsAny(normalized, serviceKeywords)
	if hasQuestion && hasService {
		return true
	}
	if hasService && strings.Contains(text, "?") {
		return true
	}
	for _, prefix := range []string{"а ", "а есть", "расскажи", "подскажи", "скажи"} {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}

func (e *Engine) handlePostQuoteDecision(text string, bctx *models.BookingContext, parsed *ParsedMessage) string {
	normalized := parsed.Lowered()
	roomType := parsed.RoomType()
	bookingIntent := containsAny(normalized, bookingIntentTokens)

	if roomType != "" {
		bctx.RoomType = roomType
	}

	if bookingIntent || roomType != "" {
		bctx.State = models.StateDone
		var parts []string
		if bctx.RoomType != "" {
			parts = append(parts, "Вы выбрали тип: "+bctx.RoomType+".")
		}
		parts = append(parts,
			"Я показываю цены и варианты. Оформить бронь можно по ссылке "+e.cfg.BookingURL+".",
			"Если нужно изменить даты, скажите 'начнём заново'.")
		return strings.Join(parts, " ")
	}

	if containsAny(normalized, showMoreTriggers) {
		return e.showMoreOffers(bctx)
	}

	if strings.Contains(normalized, "дат") {
		bctx.State = models.StateAskCheckin
		bctx.CheckIn = ""
		bctx.CheckOut = ""
		bctx.Nights = nil
		return e.bookingPrompt("Изменим даты. На какую дату планируете заезд?", bctx)
	}
	if strings.Contains(normalized, "гост") || strings.Contains(normalized, "люд") {
		bctx.State = models.StateAskAdults
		bctx.Adults = nil
		bctx.Children = nil
		bctx.ChildrenAges = nil
		return e.bookingPrompt("Сколько взрослых едет?", bctx)
	}

	if IsGeneralQuestion(text) {
		return DelegatePrefix + text
	}

	bctx.State = models.StateAwaitingDecision
	return "Если хотите изменить параметры, напишите новые даты или количество гостей. " +
		"Чтобы забронировать, воспользуйтесь ссылкой " + e.cfg.BookingURL + "."
}

func (e *Engine) showMoreOffers(bctx *models.BookingContext) string {
	if len(bctx.Offers) == 0 {
		return "У меня нет сохранённых вариантов. " +
			"Если хотите изменить параметры, напишите новые даты или количество гостей."
	}
	start := bctx.LastOfferIndex
	if start >= len(bctx.Offers) {
		bctx.State = models.StateAwaitingDecision
		return "Вы уже видели все доступные предложения. " +
			"Если хотите изменить параметры, напишите новые даты или количество гостей."
	}
	text, consumed := FormatMoreOffers(bctx.Offers[start:], e.cfg.ShownOffers)
	bctx.LastOfferIndex = start + consumed
	bctx.State = models.StateAwaitingDecision
	return text
}

// ContextEntities exposes the collected slots for debug payloads.
func ContextEntities(bctx *models.BookingContext) map[string]any {
	return map[string]any{
		"checkin":       bctx.CheckIn,
		"checkout":      bctx.CheckOut,
		"nights":        bctx.Nights,
		"adults":        bctx.Adults,
		"children":      bctx.Children,
		"children_ages": bctx.ChildrenAges,
		"room_type":     bctx.RoomType,
		"promo":         bctx.Promo,
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
