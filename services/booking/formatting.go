package booking

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"usadba/models"
)

// FormatMoney renders an amount with space-grouped thousands. RUB collapses
// to the ruble sign.
func FormatMoney(amount float64, currency string) string {
	code := strings.ToUpper(currency)
	if code == "" {
		code = "RUB"
	}
	grouped := groupThousands(int64(amount + 0.5))
	if code == "RUB" {
		return grouped + " ₽"
	}
	return grouped + " " + code
}

// FormatDateDDMM renders an ISO date as DD.MM.
func FormatDateDDMM(iso string) string {
	parsed, err := time.Parse(ISODate, iso)
	if err != nil {
		return iso
	}
	return parsed.Format("02.01")
}

// SelectMinOfferPerRoomType keeps the cheapest offer for each room name.
// Order of first appearance is preserved.
func SelectMinOfferPerRoomType(offers []models.Quote) []models.Quote {
	best := map[string]int{}
	var result []models.Quote
	for _, offer := range offers {
		idx, seen := best[offer.RoomName]
		if !seen {
			best[offer.RoomName] = len(result)
			result = append(result, offer)
			continue
		}
		if offer.TotalPrice < result[idx].TotalPrice {
			result[idx] = offer
		}
	}
	return result
}

// FormatQuoteBlock renders the priced offers block shown right after the
// calculation: a header with dates and party, the cheapest offers up to
// maxOptions, and a tail inviting "покажи ещё" when more remain.
func FormatQuoteBlock(ctx *models.BookingContext, offers []models.Quote, maxOptions int) string {
	if maxOptions <= 0 {
		maxOptions = 6
	}
	sorted := make([]models.Quote, len(offers))
	copy(sorted, offers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalPrice < sorted[j].TotalPrice
	})

	shown := sorted
	if len(shown) > maxOptions {
		shown = shown[:maxOptions]
	}
	blocks := make([]string, 0, len(shown))
	for _, offer := range shown {
		blocks = append(blocks, formatOffer(offer))
	}

	parts := []string{quoteHeader(ctx), strings.Join(blocks, "\n\n")}
	if remaining := len(sorted) - len(shown); remaining > 0 {
		parts = append(parts, fmt.Sprintf("…и ещё %d вариантов. Сказать \"покажи ещё\"?", remaining))
	}
	parts = append(parts, "Нужно оформить бронирование?")
	return strings.Join(parts, "\n\n")
}

// FormatMoreOffers renders the next page of saved offers and reports how many
// were consumed so pagination can advance.
func FormatMoreOffers(offers []models.Quote, pageSize int) (string, int) {
	if pageSize <= 0 {
		pageSize = 3
	}
	page := offers
	if len(page) > pageSize {
		page = page[:pageSize]
	}
	blocks := make([]string, 0, len(page))
	for _, offer := range page {
		blocks = append(blocks, formatOffer(offer))
	}

	parts := []string{"Ещё варианты:", strings.Join(blocks, "\n\n")}
	if remaining := len(offers) - len(page); remaining > 0 {
		parts = append(parts, fmt.Sprintf("…и ещё %d вариантов. Сказать \"покажи ещё\"?", remaining))
	} else {
		parts = append(parts, "Это все доступные варианты.")
	}
	return strings.Join(parts, "\n\n"), len(page)
}

func quoteHeader(ctx *models.BookingContext) string {
	parts := []string{
		fmt.Sprintf("На даты %s–%s", FormatDateDDMM(ctx.CheckIn), FormatDateDDMM(ctx.CheckOut)),
	}
	if nights := contextNights(ctx); nights > 0 {
		parts = append(parts, fmt.Sprintf("(%d ночи)", nights))
	}
	adults := 0
	if ctx.Adults != nil {
		adults = *ctx.Adults
	}
	guests := fmt.Sprintf("для %d взрослых", adults)
	if ctx.Children != nil && *ctx.Children > 0 {
		guests += fmt.Sprintf(" и %d детей", *ctx.Children)
	}
	parts = append(parts, guests, "доступны варианты:")
	return strings.Join(parts, " ")
}

func contextNights(ctx *models.BookingContext) int {
	if ctx.Nights != nil && *ctx.Nights > 0 {
		return *ctx.Nights
	}
	in, errIn := time.Parse(ISODate, ctx.CheckIn)
	out, errOut := time.Parse(ISODate, ctx.CheckOut)
	if errIn != nil || errOut != nil {
		return 0
	}
	if nights := int(out.Sub(in).Hours() / 24); nights > 0 {
		return nights
	}
	return 0
}

func formatOffer(offer models.Quote) string {
	lines := []string{
		"🏠 " + offer.RoomName,
		"— " + FormatMoney(offer.TotalPrice, offer.Currency),
	}
	if offer.RoomArea != nil && *offer.RoomArea > 0 {
		lines = append(lines, "— "+strconv.FormatFloat(*offer.RoomArea, 'g', -1, 64)+" м²")
	}
	if offer.BreakfastIncluded {
		lines = append(lines, "— завтрак включён")
	}
	return strings.Join(lines, "\n")
}

func groupThousands(v int64) string {
	digits := strconv.FormatInt(v, 10)
	negative := strings.HasPrefix(digits, "-")
	if negative {
		digits = digits[1:]
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}
