package shelter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usadba/config"
	"usadba/models"
)

func newTestClient(url string) *Client {
	return NewClient(config.Config{
		ShelterToken:    "test-token",
		ShelterURL:      url,
		ShelterLanguage: "ru",
		ShelterTimeout:  2,
	})
}

func guestsParty() models.Guests {
	return models.Guests{Adults: 2, Children: 1, ChildrenAges: []int{5}}
}

func TestGetQuotesRoomsShape(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/getVariants", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"rooms": []any{
				map[string]any{
					"name":     "Люкс",
					"roomArea": 40.0,
					"rates": []any{
						map[string]any{
							"total":    map[string]any{"amount": 9000.0, "currency": "rub"},
							"mealPlan": map[string]any{"breakfastIncluded": true},
						},
					},
				},
				map[string]any{
					"name": "Стандарт",
					"rates": []any{
						map[string]any{
							"price": map[string]any{"value": 4000.0},
						},
					},
				},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	offers, err := client.GetQuotes(context.Background(), "2024-12-19", "2024-12-21", guestsParty())
	require.NoError(t, err)
	require.Len(t, offers, 2)

	// Token and party travel in the body; offers come back price-sorted.
	assert.Equal(t, "test-token", captured["token"])
	assert.Equal(t, "ru", captured["language"])
	rooms := captured["rooms"].([]any)
	room := rooms[0].(map[string]any)
	assert.Equal(t, float64(2), room["adults"])
	assert.Equal(t, "5", room["kidsAges"])

	assert.Equal(t, "Стандарт", offers[0].RoomName)
	assert.Equal(t, float64(4000), offers[0].TotalPrice)
	assert.Equal(t, "RUB", offers[0].Currency)
	assert.False(t, offers[0].BreakfastIncluded)

	assert.Equal(t, "Люкс", offers[1].RoomName)
	assert.True(t, offers[1].BreakfastIncluded)
	require.NotNil(t, offers[1].RoomArea)
	assert.Equal(t, 40.0, *offers[1].RoomArea)
}

func TestGetQuotesChunkedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []any{
				[]any{
					map[string]any{"roomCategoryID": 7, "price": 12000.0, "breakfastIncluded": true},
				},
				[]any{
					map[string]any{"id": 7, "name": "Коттедж", "roomArea": 60.0, "availableRooms": 2},
				},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	offers, err := client.GetQuotes(context.Background(), "2024-12-19", "2024-12-21", guestsParty())
	require.NoError(t, err)
	require.Len(t, offers, 1)

	assert.Equal(t, "Коттедж", offers[0].RoomName)
	assert.Equal(t, float64(12000), offers[0].TotalPrice)
	assert.True(t, offers[0].BreakfastIncluded)
	require.NotNil(t, offers[0].RoomArea)
	assert.Equal(t, 60.0, *offers[0].RoomArea)
}

func TestGetQuotesRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"rooms": []any{}})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	offers, err := client.GetQuotes(context.Background(), "2024-12-19", "2024-12-21", guestsParty())
	require.NoError(t, err)
	assert.Empty(t, offers)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetQuotesClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.GetQuotes(context.Background(), "2024-12-19", "2024-12-21", guestsParty())
	require.Error(t, err)
	var availErr *AvailabilityError
	assert.ErrorAs(t, err, &availErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetQuotesNotConfigured(t *testing.T) {
	client := NewClient(config.Config{ShelterTimeout: 1})
	assert.False(t, client.IsConfigured())

	_, err := client.GetQuotes(context.Background(), "2024-12-19", "2024-12-21", guestsParty())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
