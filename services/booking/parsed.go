package booking

import (
	"strings"
	"time"
)

// ParsedMessage memoizes every extraction pass over one user message so the
// dialogue engine can consult the same parse from several states without
// re-running the regexes. One instance covers exactly one message.
type ParsedMessage struct {
	text    string
	lowered string

	checkins map[string]string

	guestsDone   bool
	guestsAdults *int
	guestsKids   *int

	nightsDone bool
	nights     *int

	adults map[bool]*int

	childrenDone  bool
	childrenCount *int

	ages map[int][]int

	roomTypeDone bool
	roomType     string
}

// NewParsedMessage wraps a raw message for lazy extraction.
func NewParsedMessage(text string) *ParsedMessage {
	return &ParsedMessage{
		text:     text,
		lowered:  strings.ToLower(strings.TrimSpace(text)),
		checkins: map[string]string{},
		adults:   map[bool]*int{},
		ages:     map[int][]int{},
	}
}

// Text returns the original message.
func (p *ParsedMessage) Text() string { return p.text }

// Lowered returns the trimmed, lowercased message.
func (p *ParsedMessage) Lowered() string { return p.lowered }

// Checkin extracts the first date relative to the given reference date.
// Memoized per reference so check-in and check-out resolution do not collide.
func (p *ParsedMessage) Checkin(ref time.Time) string {
	key := ref.Format(ISODate)
	if cached, ok := p.checkins[key]; ok {
		return cached
	}
	result := ParseCheckin(p.text, ref)
	p.checkins[key] = result
	return result
}

// Guests extracts explicit adult and child counts.
func (p *ParsedMessage) Guests() (adults *int, children *int) {
	if !p.guestsDone {
		p.guestsAdults, p.guestsKids = extractGuests(p.text)
		p.guestsDone = true
	}
	return p.guestsAdults, p.guestsKids
}

// Nights extracts a stay duration.
func (p *ParsedMessage) Nights() *int {
	if !p.nightsDone {
		p.nights = ParseNights(p.text)
		p.nightsDone = true
	}
	return p.nights
}

// Adults extracts an adults count; allowGeneral permits bare numbers.
func (p *ParsedMessage) Adults(allowGeneral bool) *int {
	if cached, ok := p.adults[allowGeneral]; ok {
		return cached
	}
	result := ParseAdults(p.text, allowGeneral)
	p.adults[allowGeneral] = result
	return result
}

// ChildrenCount extracts an answer to the children question.
func (p *ParsedMessage) ChildrenCount() *int {
	if !p.childrenDone {
		p.childrenCount = ParseChildrenCount(p.text)
		p.childrenDone = true
	}
	return p.childrenCount
}

// ChildrenAges extracts children ages, memoized per expected count.
func (p *ParsedMessage) ChildrenAges(expected *int) []int {
	key := -1
	if expected != nil {
		key = *expected
	}
	if cached, ok := p.ages[key]; ok {
		return cached
	}
	result := ParseChildrenAges(p.text, expected)
	p.ages[key] = result
	return result
}

// RoomType extracts a room type keyword.
func (p *ParsedMessage) RoomType() string {
	if !p.roomTypeDone {
		p.roomType = ParseRoomType(p.text)
		p.roomTypeDone = true
	}
	return p.roomType
}
