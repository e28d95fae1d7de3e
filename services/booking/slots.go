package booking

import (
	"time"

	"usadba/models"
)

// ApplyEntities merges a full extraction pass into the context. Slots fill
// only when absent; a later message never silently overwrites an earlier
// answer.
func ApplyEntities(ctx *models.BookingContext, entities models.BookingEntities) {
	if ctx.CheckIn == "" {
		ctx.CheckIn = entities.CheckIn
	}
	if ctx.CheckOut == "" {
		ctx.CheckOut = entities.CheckOut
	}
	if ctx.Nights == nil && ctx.CheckOut == "" {
		ctx.Nights = entities.Nights
	}
	if ctx.Adults == nil {
		ctx.Adults = entities.Adults
	}
	if ctx.Children == nil {
		ctx.Children = entities.Children
	}
	if len(ctx.ChildrenAges) == 0 && entities.Children != nil && *entities.Children <= 0 {
		ctx.ChildrenAges = []int{}
	}
	if ctx.RoomType == "" {
		ctx.RoomType = entities.RoomType
	}
}

// ApplyMessage merges whatever the current message yields into the context,
// again fill-only-if-absent. State gates the riskier extractions: bare
// numbers only count as adults once the dialogue is past the nights question,
// and ages are only read while they are being asked for.
func ApplyMessage(ctx *models.BookingContext, parsed *ParsedMessage, now time.Time) {
	if ctx.CheckIn == "" {
		ctx.CheckIn = parsed.Checkin(now)
	}
	if ctx.Nights == nil && ctx.CheckOut == "" {
		ctx.Nights = parsed.Nights()
	}
	if ctx.CheckOut == "" && ctx.CheckIn != "" {
		checkinDate, err := time.Parse(ISODate, ctx.CheckIn)
		if err != nil {
			checkinDate = now
		}
		candidate := parsed.Checkin(checkinDate)
		if candidate != "" && candidate != ctx.CheckIn {
			checkoutDate, err := time.Parse(ISODate, candidate)
			if err == nil && checkoutDate.After(checkinDate) {
				ctx.CheckOut = candidate
			}
		}
	}
	if ctx.Adults == nil {
		allowGeneral := allowsBareAdults(ctx.State)
		ctx.Adults = parsed.Adults(allowGeneral)
	}
	if ctx.Children == nil && asksChildren(ctx.State) {
		ctx.Children = parsed.ChildrenCount()
	}
	if ctx.Children != nil && *ctx.Children > 0 &&
		len(ctx.ChildrenAges) == 0 && ctx.State == models.StateAskChildrenAges {
		ctx.ChildrenAges = parsed.ChildrenAges(ctx.Children)
	}
	if ctx.RoomType == "" {
		ctx.RoomType = parsed.RoomType()
	}
}

func allowsBareAdults(state models.BookingState) bool {
	switch state {
	case models.StateAskAdults, models.StateAskChildrenCount, models.StateAskChildrenAges,
		models.StateCalculate, models.StateAwaitingDecision, models.StateConfirmBooking:
		return true
	}
	return false
}

func asksChildren(state models.BookingState) bool {
	return state == models.StateAskChildrenCount || state == models.StateAskChildrenAges
}

// MissingFields lists the slots still required before a quote can be priced.
func MissingFields(ctx *models.BookingContext) []string {
	var missing []string
	if ctx.CheckIn == "" {
		missing = append(missing, "checkin")
	}
	if ctx.CheckOut == "" && ctx.Nights == nil {
		missing = append(missing, "checkout_or_nights")
	}
	if ctx.Adults == nil {
		missing = append(missing, "adults")
	}
	if ctx.Children == nil {
		missing = append(missing, "children")
	}
	if ctx.Children != nil && *ctx.Children > 0 && len(ctx.ChildrenAges) == 0 {
		missing = append(missing, "children_ages")
	}
	return missing
}
