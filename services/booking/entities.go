package booking

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"usadba/models"
)

// ISODate is the wire format for all dates handled by the dialogue.
const ISODate = "2006-01-02"

// months maps Russian month-name stems to month numbers.
var months = map[string]time.Month{
	"янв": time.January,
	"фев": time.February,
	"мар": time.March,
	"апр": time.April,
	"мая": time.May,
	"май": time.May,
	"июн": time.June,
	"июл": time.July,
	"авг": time.August,
	"сен": time.September,
	"окт": time.October,
	"ноя": time.November,
	"дек": time.December,
}

var monthNames = []string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// numberWords is the closed vocabulary of spelled-out numerals 0-10.
var numberWords = map[string]int{
	"ноль": 0, "нуль": 0,
	"один": 1, "одна": 1, "одного": 1, "одну": 1,
	"два": 2, "две": 2, "двое": 2, "двоих": 2,
	"три": 3, "трое": 3, "троих": 3,
	"четыре": 4, "четверо": 4, "четырех": 4, "четырёх": 4,
	"пять": 5, "пятеро": 5,
	"шесть": 6, "шестеро": 6,
	"семь": 7, "семеро": 7,
	"восемь": 8,
	"девять": 9,
	"десять": 10,
}

const numberWordPattern = `ноль|нуль|одного|одну|одна|один|двоих|двое|две|два|троих|трое|три|четырёх|четырех|четверо|четыре|пятеро|пять|шестеро|шесть|семеро|семь|восемь|девять|десять`

var (
	dateRangeTextRe = regexp.MustCompile(
		`(?i)(?:с\s*)?(\d{1,2})\s*(?:[-–—]|по|до)\s*(\d{1,2})\s+([а-яё]+)(?:\s+(\d{4}))?`)
	dateRangeNumericRe = regexp.MustCompile(
		`(\d{1,2})\s*[-–—]\.?(\d{1,2})[./](\d{1,2})(?:[./](\d{4}))?`)
	dateISORe         = regexp.MustCompile(`\b(20\d{2})-(\d{1,2})-(\d{1,2})\b`)
	dateDottedRe      = regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](20\d{2})\b`)
	dateDottedShortRe = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\b`)
	dateTextRe        = regexp.MustCompile(
		`(?i)\b(\d{1,2})\s+(января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)(?:\s*,?\s*(20\d{2}))?`)

	plusGuestsRe   = regexp.MustCompile(`(\d+)\s*\+\s*(\d+)`)
	adultsAfterRe  = regexp.MustCompile(`(?i)(\d+|` + numberWordPattern + `)\s*(?:взросл[а-яё]*|взр\.?|adult\w*)`)
	adultsBeforeRe = regexp.MustCompile(`(?i)(?:взросл[а-яё]*|adult\w*)[:\s-]*(\d+|` + numberWordPattern + `)`)
	childAfterRe   = regexp.MustCompile(`(?i)(\d+|` + numberWordPattern + `)\s*(?:дет(?:ей|и|ишк[а-яё]*)|реб[её]н(?:ок|ка|очек)?|child\w*|kid\w*)`)
	childBeforeRe  = regexp.MustCompile(`(?i)(?:дет(?:ей|и)|child\w*)[:\s-]*(\d+|` + numberWordPattern + `)`)

	nightsRe     = regexp.MustCompile(`(?i)(\d+|` + numberWordPattern + `)\s*(ноч(?:ь|и|ей)?|дн(?:я|ей))`)
	nightsSkipRe = regexp.MustCompile(`^\s*(?:назад|спустя)`)

	agesBlockRe = regexp.MustCompile(`(?i)возраст[а-яё]*[:\s]+((?:\d{1,2}[\s,;и]*)+)`)
	agesYearsRe = regexp.MustCompile(`\b(\d{1,2})\s*(?:лет|год(?:а|ик[а-яё]*)?)`)
	agesSplitRe = regexp.MustCompile(`[\s,;]+|и`)

	bareNumberRe = regexp.MustCompile(`^(?:\d+|` + numberWordPattern + `)$`)
)

// roomTypeTable maps keyword stems to canonical room types. Checked in order,
// no fuzzy matching.
var roomTypeTable = []struct {
	stem string
	name string
}{
	{"делюкс", "делюкс"},
	{"люкс", "люкс"},
	{"стандарт", "стандарт"},
	{"студи", "студия"},
	{"семейн", "семейный"},
	{"апартамент", "апартаменты"},
	{"коттедж", "коттедж"},
	{"домик", "домик"},
	{"эконом", "эконом"},
}

var weekdayStems = []struct {
	stem string
	day  time.Weekday
}{
	{"понедельник", time.Monday},
	{"вторник", time.Tuesday},
	{"сред", time.Wednesday},
	{"четверг", time.Thursday},
	{"пятниц", time.Friday},
	{"суббот", time.Saturday},
	{"воскресень", time.Sunday},
}

// ExtractEntities runs every extraction pass over a raw message. It never
// fails; fields that cannot be resolved are left unset.
func ExtractEntities(text string, ref time.Time) models.BookingEntities {
	ref = dateOnly(ref)
	dates := extractDates(text, ref)

	entities := models.BookingEntities{}
	if len(dates) >= 1 {
		entities.CheckIn = dates[0].Format(ISODate)
	}
	if len(dates) >= 2 {
		entities.CheckOut = dates[1].Format(ISODate)
	}

	adults, children := extractGuests(text)
	entities.Adults = adults
	entities.Children = children

	if entities.CheckIn != "" && entities.CheckOut != "" {
		in, errIn := time.Parse(ISODate, entities.CheckIn)
		out, errOut := time.Parse(ISODate, entities.CheckOut)
		if errIn == nil && errOut == nil {
			if nights := int(out.Sub(in).Hours() / 24); nights > 0 {
				entities.Nights = &nights
			}
		}
	}
	if entities.Nights == nil {
		entities.Nights = parseNights(text, false)
	}
	if children != nil && *children > 0 {
		entities.ChildrenAges = ParseChildrenAges(text, children)
	}
	entities.RoomType = ParseRoomType(text)

	if entities.CheckIn == "" {
		entities.MissingFields = append(entities.MissingFields, "checkin")
	}
	if entities.CheckOut == "" && entities.Nights == nil {
		entities.MissingFields = append(entities.MissingFields, "checkout")
	}
	if entities.Adults == nil {
		entities.MissingFields = append(entities.MissingFields, "adults")
	}
	if entities.RoomType == "" {
		entities.MissingFields = append(entities.MissingFields, "room_type")
	}
	return entities
}

// ParseCheckin returns the first date found in the text, ISO formatted, or "".
func ParseCheckin(text string, ref time.Time) string {
	dates := extractDates(text, dateOnly(ref))
	if len(dates) == 0 {
		return ""
	}
	return dates[0].Format(ISODate)
}

// ParseNights finds a stay duration ("на 3 ночи", "две ночи", a bare number
// as the whole message). The bare-number reading belongs to the message path,
// where the dialogue state says a duration is the expected answer; the full
// extraction pass uses only the explicit forms so a bare answer to another
// question never lands in the nights slot.
func ParseNights(text string) *int {
	return parseNights(text, true)
}

func parseNights(text string, allowBare bool) *int {
	lowered := strings.ToLower(strings.TrimSpace(text))

	for _, loc := range nightsRe.FindAllStringSubmatchIndex(lowered, -1) {
		token := lowered[loc[2]:loc[3]]
		// "3 дня назад" is a time reference, not a duration.
		if nightsSkipRe.MatchString(lowered[loc[1]:]) {
			continue
		}
		if value := parseNumberToken(token); value != nil {
			return value
		}
	}

	if allowBare && bareNumberRe.MatchString(lowered) {
		return parseNumberToken(lowered)
	}
	return nil
}

// ParseAdults finds an adults count. With allowGeneral, a message that is a
// bare number counts as the answer; the dialogue engine disables that when
// the same number was already consumed as a nights answer.
func ParseAdults(text string, allowGeneral bool) *int {
	lowered := strings.ToLower(text)
	if m := adultsAfterRe.FindStringSubmatch(lowered); m != nil {
		if value := parseNumberToken(m[1]); value != nil {
			return value
		}
	}
	if m := adultsBeforeRe.FindStringSubmatch(lowered); m != nil {
		if value := parseNumberToken(m[1]); value != nil {
			return value
		}
	}
	if allowGeneral {
		trimmed := strings.TrimSpace(lowered)
		if bareNumberRe.MatchString(trimmed) {
			return parseNumberToken(trimmed)
		}
	}
	return nil
}

// ParseChildrenCount reads an answer to "how many children". Negative
// phrasings yield zero; a bare affirmation yields nothing.
func ParseChildrenCount(text string) *int {
	lowered := strings.ToLower(strings.TrimSpace(text))
	switch lowered {
	case "нет", "неа", "нету", "не будет", "без детей", "нет детей", "0":
		zero := 0
		return &zero
	case "да", "будут", "есть":
		return nil
	}
	if m := childAfterRe.FindStringSubmatch(lowered); m != nil {
		if value := parseNumberToken(m[1]); value != nil {
			return value
		}
	}
	if m := childBeforeRe.FindStringSubmatch(lowered); m != nil {
		if value := parseNumberToken(m[1]); value != nil {
			return value
		}
	}
	if bareNumberRe.MatchString(lowered) {
		return parseNumberToken(lowered)
	}
	return nil
}

// ParseChildrenAges searches three increasingly permissive passes: an explicit
// ages block, trailing "years old" tokens, then a bare run of numbers. Ages
// outside 0..17 are discarded; a count mismatch against expected discards the
// whole extraction.
func ParseChildrenAges(text string, expected *int) []int {
	var ages []int
	for _, m := range agesBlockRe.FindAllStringSubmatch(strings.ToLower(text), -1) {
		ages = append(ages, splitAges(m[1])...)
	}
	if len(ages) == 0 {
		for _, m := range agesYearsRe.FindAllStringSubmatch(text, -1) {
			if v, err := strconv.Atoi(m[1]); err == nil {
				ages = append(ages, v)
			}
		}
	}
	if len(ages) == 0 {
		ages = splitAges(text)
	}

	filtered := ages[:0]
	for _, age := range ages {
		if age >= 0 && age <= 17 {
			filtered = append(filtered, age)
		}
	}
	if expected != nil && len(filtered) > 0 && len(filtered) != *expected {
		return nil
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

// ParseRoomType matches against the closed keyword table.
func ParseRoomType(text string) string {
	lowered := strings.ToLower(text)
	for _, entry := range roomTypeTable {
		if strings.Contains(lowered, entry.stem) {
			return entry.name
		}
	}
	return ""
}

// FormatDateRu renders an ISO date as "25 ноября" for prompts.
func FormatDateRu(iso string) string {
	parsed, err := time.Parse(ISODate, iso)
	if err != nil {
		return iso
	}
	return strconv.Itoa(parsed.Day()) + " " + monthNames[int(parsed.Month())-1]
}

// --- date extraction ---------------------------------------------------

type positional struct {
	pos  int
	date time.Time
}

func extractDates(text string, ref time.Time) []time.Time {
	lowered := strings.ToLower(text)

	if dates := matchTextRange(lowered, ref); dates != nil {
		return dates
	}
	if dates := matchNumericRange(lowered, ref); dates != nil {
		return dates
	}

	var matches []positional
	appendMatch := func(pos int, d time.Time, ok bool) {
		if ok {
			matches = append(matches, positional{pos, d})
		}
	}

	for _, loc := range dateISORe.FindAllStringSubmatchIndex(text, -1) {
		d, ok := mkDate(atoi(text[loc[2]:loc[3]]), atoi(text[loc[4]:loc[5]]), atoi(text[loc[6]:loc[7]]))
		appendMatch(loc[0], d, ok)
	}
	for _, loc := range dateDottedRe.FindAllStringSubmatchIndex(text, -1) {
		d, ok := mkDate(atoi(text[loc[6]:loc[7]]), atoi(text[loc[4]:loc[5]]), atoi(text[loc[2]:loc[3]]))
		appendMatch(loc[0], d, ok)
	}
	for _, loc := range dateDottedShortRe.FindAllStringSubmatchIndex(text, -1) {
		// Skip the DD.MM prefix of a full DD.MM.YYYY form.
		if rest := text[loc[1]:]; len(rest) > 1 && rest[0] == '.' && rest[1] >= '0' && rest[1] <= '9' {
			continue
		}
		d, ok := nextFuture(atoi(text[loc[2]:loc[3]]), time.Month(atoi(text[loc[4]:loc[5]])), ref)
		appendMatch(loc[0], d, ok)
	}
	for _, loc := range dateTextRe.FindAllStringSubmatchIndex(lowered, -1) {
		day := atoi(lowered[loc[2]:loc[3]])
		month, ok := months[stem(lowered[loc[4]:loc[5]])]
		if !ok {
			continue
		}
		if loc[6] >= 0 {
			d, ok := mkDate(atoi(lowered[loc[6]:loc[7]]), int(month), day)
			appendMatch(loc[0], d, ok)
		} else {
			d, ok := nextFuture(day, month, ref)
			appendMatch(loc[0], d, ok)
		}
	}
	matches = append(matches, relativeDates(lowered, ref)...)

	sortPositional(matches)

	seen := map[string]bool{}
	var dates []time.Time
	for _, m := range matches {
		iso := m.date.Format(ISODate)
		if seen[iso] {
			continue
		}
		seen[iso] = true
		dates = append(dates, m.date)
		if len(dates) == 2 {
			break
		}
	}
	return dates
}

func matchTextRange(lowered string, ref time.Time) []time.Time {
	m := dateRangeTextRe.FindStringSubmatch(lowered)
	if m == nil {
		return nil
	}
	month, ok := months[stem(m[3])]
	if !ok {
		return nil
	}
	startDay, endDay := atoi(m[1]), atoi(m[2])
	if m[4] != "" {
		year := atoi(m[4])
		in, okIn := mkDate(year, int(month), startDay)
		out, okOut := mkDate(year, int(month), endDay)
		if okIn && okOut {
			return []time.Time{in, out}
		}
	}
	in, okIn := nextFuture(startDay, month, ref)
	out, okOut := nextFuture(endDay, month, ref)
	if okIn && okOut {
		return []time.Time{in, out}
	}
	return nil
}

func matchNumericRange(lowered string, ref time.Time) []time.Time {
	m := dateRangeNumericRe.FindStringSubmatch(lowered)
	if m == nil {
		return nil
	}
	month := atoi(m[3])
	if month < 1 || month > 12 {
		return nil
	}
	startDay, endDay := atoi(m[1]), atoi(m[2])
	if m[4] != "" {
		year := atoi(m[4])
		in, okIn := mkDate(year, month, startDay)
		out, okOut := mkDate(year, month, endDay)
		if okIn && okOut {
			return []time.Time{in, out}
		}
	}
	in, okIn := nextFuture(startDay, time.Month(month), ref)
	out, okOut := nextFuture(endDay, time.Month(month), ref)
	if okIn && okOut {
		return []time.Time{in, out}
	}
	return nil
}

func relativeDates(lowered string, ref time.Time) []positional {
	var matches []positional
	if pos := strings.Index(lowered, "послезавтра"); pos >= 0 {
		matches = append(matches, positional{pos, ref.AddDate(0, 0, 2)})
	} else if pos := strings.Index(lowered, "завтра"); pos >= 0 {
		matches = append(matches, positional{pos, ref.AddDate(0, 0, 1)})
	}
	if pos := strings.Index(lowered, "сегодня"); pos >= 0 {
		matches = append(matches, positional{pos, ref})
	}
	for _, entry := range weekdayStems {
		pos := strings.Index(lowered, entry.stem)
		if pos < 0 {
			continue
		}
		days := int(entry.day-ref.Weekday()+7) % 7
		if days == 0 {
			days = 7
		}
		if strings.Contains(lowered[:pos], "следующ") {
			days += 7
		}
		matches = append(matches, positional{pos, ref.AddDate(0, 0, days)})
	}
	return matches
}

// nextFuture resolves a yearless day/month to its earliest occurrence not
// before the reference date.
func nextFuture(day int, month time.Month, ref time.Time) (time.Time, bool) {
	candidate, ok := mkDate(ref.Year(), int(month), day)
	if !ok {
		return time.Time{}, false
	}
	if candidate.Before(ref) {
		return mkDate(ref.Year()+1, int(month), day)
	}
	return candidate, true
}

// mkDate builds a UTC date and rejects values the calendar normalized away.
func mkDate(year, month, day int) (time.Time, bool) {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// --- guests -------------------------------------------------------------

func extractGuests(text string) (adults *int, children *int) {
	lowered := strings.ToLower(text)

	// "2 + 1" assigns both counts at once.
	if m := plusGuestsRe.FindStringSubmatch(lowered); m != nil {
		a, errA := strconv.Atoi(m[1])
		c, errC := strconv.Atoi(m[2])
		if errA == nil && errC == nil {
			return &a, &c
		}
	}

	if m := adultsAfterRe.FindStringSubmatch(lowered); m != nil {
		adults = parseNumberToken(m[1])
	}
	if adults == nil {
		if m := adultsBeforeRe.FindStringSubmatch(lowered); m != nil {
			adults = parseNumberToken(m[1])
		}
	}
	if m := childAfterRe.FindStringSubmatch(lowered); m != nil {
		children = parseNumberToken(m[1])
	}
	if children == nil {
		if m := childBeforeRe.FindStringSubmatch(lowered); m != nil {
			children = parseNumberToken(m[1])
		}
	}
	if children != nil && *children < 0 {
		children = nil
	}
	return adults, children
}

func parseNumberToken(token string) *int {
	normalized := strings.ToLower(strings.TrimSpace(token))
	if normalized == "" {
		return nil
	}
	if v, err := strconv.Atoi(normalized); err == nil {
		return &v
	}
	if v, ok := numberWords[normalized]; ok {
		return &v
	}
	return nil
}

func splitAges(block string) []int {
	var ages []int
	for _, part := range agesSplitRe.Split(block, -1) {
		if part == "" {
			continue
		}
		if v, err := strconv.Atoi(part); err == nil {
			ages = append(ages, v)
		} else {
			return nil
		}
	}
	return ages
}

func stem(word string) string {
	runes := []rune(word)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes)
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func sortPositional(matches []positional) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].pos < matches[j-1].pos; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}
