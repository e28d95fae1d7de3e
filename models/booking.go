package models

import "time"

// BookingState identifies which slot the dialogue engine is currently
// soliciting. States advance forward through a fixed order; only the explicit
// back and cancel commands move them the other way.
type BookingState string

const (
	StateAskCheckin          BookingState = "ask_checkin"
	StateAskNightsOrCheckout BookingState = "ask_nights_or_checkout"
	StateAskAdults           BookingState = "ask_adults"
	StateAskChildrenCount    BookingState = "ask_children_count"
	StateAskChildrenAges     BookingState = "ask_children_ages"
	StateCalculate           BookingState = "calculate"
	StateAwaitingDecision    BookingState = "awaiting_user_decision"
	StateConfirmBooking      BookingState = "confirm_booking"
	StateDone                BookingState = "done"
	StateCancelled           BookingState = "cancelled"
)

// StateOrder is the forward order the dialogue walks through.
var StateOrder = []BookingState{
	StateAskCheckin,
	StateAskNightsOrCheckout,
	StateAskAdults,
	StateAskChildrenCount,
	StateAskChildrenAges,
	StateCalculate,
	StateAwaitingDecision,
	StateConfirmBooking,
}

// Guests describes the party for an availability request.
type Guests struct {
	Adults       int   `json:"adults"`
	Children     int   `json:"children"`
	ChildrenAges []int `json:"childrenAges,omitempty"`
}

// Quote is a single priced offer returned by the availability collaborator.
// Immutable once created.
type Quote struct {
	RoomName          string   `json:"roomName"`
	TotalPrice        float64  `json:"totalPrice"`
	Currency          string   `json:"currency"`
	BreakfastIncluded bool     `json:"breakfastIncluded"`
	RoomArea          *float64 `json:"roomArea,omitempty"`
	CheckIn           string   `json:"checkIn"`
	CheckOut          string   `json:"checkOut"`
	Guests            Guests   `json:"guests"`
}

// BookingContext holds the collected slots plus dialogue position for one
// session. Persisted as JSON in the session store between turns; nil pointer
// fields mean "not yet known".
type BookingContext struct {
	CheckIn      string         `json:"checkin,omitempty"`
	Nights       *int           `json:"nights,omitempty"`
	CheckOut     string         `json:"checkout,omitempty"`
	Adults       *int           `json:"adults,omitempty"`
	Children     *int           `json:"children,omitempty"`
	ChildrenAges []int          `json:"childrenAges,omitempty"`
	RoomType     string         `json:"roomType,omitempty"`
	Promo        string         `json:"promo,omitempty"`
	State        BookingState   `json:"state,omitempty"`
	Retries      map[string]int `json:"retries,omitempty"`

	// Price-sorted, deduplicated offers kept for "show more" pagination.
	Offers         []Quote `json:"offers,omitempty"`
	LastOfferIndex int     `json:"lastOfferIndex,omitempty"`

	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

// NewBookingContext returns a context positioned at the first question.
func NewBookingContext() *BookingContext {
	return &BookingContext{
		State:     StateAskCheckin,
		Retries:   map[string]int{},
		UpdatedAt: time.Now().Unix(),
	}
}

// Guests returns the party once the required slots are filled, or nil.
func (c *BookingContext) GuestParty() *Guests {
	if c.Adults == nil {
		return nil
	}
	children := 0
	if c.Children != nil {
		children = *c.Children
	}
	return &Guests{
		Adults:       *c.Adults,
		Children:     children,
		ChildrenAges: c.ChildrenAges,
	}
}

// Compact returns a small map for log lines.
func (c *BookingContext) Compact() map[string]any {
	return map[string]any{
		"state":        c.State,
		"checkin":      c.CheckIn,
		"nights":       c.Nights,
		"checkout":     c.CheckOut,
		"adults":       c.Adults,
		"children":     c.Children,
		"childrenAges": c.ChildrenAges,
		"roomType":     c.RoomType,
	}
}

// RequiresCheckin reports whether the state presumes an already-known
// check-in date.
func (s BookingState) RequiresCheckin() bool {
	switch s {
	case StateAskNightsOrCheckout, StateAskAdults, StateAskChildrenCount,
		StateAskChildrenAges, StateCalculate:
		return true
	}
	return false
}

// BookingEntities is the result of one extraction pass over raw text.
// Unresolvable fields stay nil/empty.
type BookingEntities struct {
	CheckIn       string
	CheckOut      string
	Adults        *int
	Children      *int
	ChildrenAges  []int
	Nights        *int
	RoomType      string
	MissingFields []string
}
