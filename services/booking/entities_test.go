package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ref = time.Date(2024, 12, 1, 10, 30, 0, 0, time.UTC)

func TestExtractEntitiesDateAndNights(t *testing.T) {
	entities := ExtractEntities("Хочу заехать 19 декабря на 2 ночи", ref)

	assert.Equal(t, "2024-12-19", entities.CheckIn)
	require.NotNil(t, entities.Nights)
	assert.Equal(t, 2, *entities.Nights)
	assert.Empty(t, entities.CheckOut)
}

func TestExtractEntitiesYearlessDateRollsForward(t *testing.T) {
	// November already passed relative to December 1st.
	entities := ExtractEntities("заезд 15 ноября", ref)
	assert.Equal(t, "2025-11-15", entities.CheckIn)
}

func TestExtractEntitiesExplicitYearStaysLiteral(t *testing.T) {
	entities := ExtractEntities("с 08.02.2023 двое взрослых", ref)
	assert.Equal(t, "2023-02-08", entities.CheckIn)
}

func TestExtractEntitiesTextRange(t *testing.T) {
	entities := ExtractEntities("с 10 по 14 февраля, 2 взрослых", ref)

	assert.Equal(t, "2025-02-10", entities.CheckIn)
	assert.Equal(t, "2025-02-14", entities.CheckOut)
	require.NotNil(t, entities.Nights)
	assert.Equal(t, 4, *entities.Nights)
	require.NotNil(t, entities.Adults)
	assert.Equal(t, 2, *entities.Adults)
}

func TestExtractEntitiesPlusGuests(t *testing.T) {
	entities := ExtractEntities("нас 2 + 1", ref)

	require.NotNil(t, entities.Adults)
	require.NotNil(t, entities.Children)
	assert.Equal(t, 2, *entities.Adults)
	assert.Equal(t, 1, *entities.Children)
}

func TestExtractEntitiesNumberWords(t *testing.T) {
	entities := ExtractEntities("двое взрослых и один ребёнок", ref)

	require.NotNil(t, entities.Adults)
	assert.Equal(t, 2, *entities.Adults)
	require.NotNil(t, entities.Children)
	assert.Equal(t, 1, *entities.Children)
}

func TestExtractEntitiesISOAndDottedDates(t *testing.T) {
	entities := ExtractEntities("с 2025-02-10 по 14.02.2025", ref)
	assert.Equal(t, "2025-02-10", entities.CheckIn)
	assert.Equal(t, "2025-02-14", entities.CheckOut)
}

func TestExtractEntitiesRoomType(t *testing.T) {
	entities := ExtractEntities("хочу коттедж на двоих", ref)
	assert.Equal(t, "коттедж", entities.RoomType)
}

func TestParseNightsSkipsTimeReferences(t *testing.T) {
	assert.Nil(t, ParseNights("мы были у вас 3 дня назад"))

	nights := ParseNights("останемся на 3 ночи")
	require.NotNil(t, nights)
	assert.Equal(t, 3, *nights)
}

func TestParseNightsBareNumber(t *testing.T) {
	nights := ParseNights("2")
	require.NotNil(t, nights)
	assert.Equal(t, 2, *nights)

	nights = ParseNights("две ночи")
	require.NotNil(t, nights)
	assert.Equal(t, 2, *nights)
}

func TestExtractEntitiesIgnoresBareNumbers(t *testing.T) {
	// A lone number or number word is an answer to whatever was just asked;
	// only the dialogue state may read it, never the blanket extraction.
	assert.Nil(t, ExtractEntities("двое", ref).Nights)
	assert.Nil(t, ExtractEntities("2", ref).Nights)

	nights := ParseNights("двое")
	require.NotNil(t, nights)
	assert.Equal(t, 2, *nights)
}

func TestParseAdultsGeneralGate(t *testing.T) {
	assert.Nil(t, ParseAdults("4", false))

	adults := ParseAdults("4", true)
	require.NotNil(t, adults)
	assert.Equal(t, 4, *adults)

	adults = ParseAdults("нас 3 взрослых", false)
	require.NotNil(t, adults)
	assert.Equal(t, 3, *adults)
}

func TestParseChildrenCount(t *testing.T) {
	zero := ParseChildrenCount("нет")
	require.NotNil(t, zero)
	assert.Equal(t, 0, *zero)

	assert.Nil(t, ParseChildrenCount("да"))

	two := ParseChildrenCount("двое детей")
	require.NotNil(t, two)
	assert.Equal(t, 2, *two)
}

func TestParseChildrenAges(t *testing.T) {
	two := 2
	assert.Equal(t, []int{5, 7}, ParseChildrenAges("5 и 7", &two))
	assert.Equal(t, []int{3, 10}, ParseChildrenAges("возраст: 3, 10", &two))
	assert.Equal(t, []int{6, 9}, ParseChildrenAges("6 лет и 9 лет", &two))

	// Count mismatch discards the extraction.
	assert.Nil(t, ParseChildrenAges("5, 7, 9", &two))
	// Out-of-range values are dropped.
	three := 3
	assert.Nil(t, ParseChildrenAges("5, 7, 25", &three))
}

func TestRelativeDates(t *testing.T) {
	assert.Equal(t, "2024-12-02", ParseCheckin("заезд завтра", ref))
	assert.Equal(t, "2024-12-03", ParseCheckin("послезавтра", ref))
	assert.Equal(t, "2024-12-01", ParseCheckin("сегодня", ref))

	// ref is a Sunday; next Friday is Dec 6, "следующая пятница" is Dec 13.
	assert.Equal(t, "2024-12-06", ParseCheckin("в пятницу", ref))
	assert.Equal(t, "2024-12-13", ParseCheckin("в следующую пятницу", ref))
}

func TestFormatDateRu(t *testing.T) {
	assert.Equal(t, "25 ноября", FormatDateRu("2024-11-25"))
	assert.Equal(t, "not-a-date", FormatDateRu("not-a-date"))
}
