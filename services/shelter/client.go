// Package shelter integrates with the Shelter Cloud PMS online API for
// room availability and pricing.
package shelter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"usadba/config"
	"usadba/models"
	"usadba/utils"
)

// ErrNotConfigured means the API token is missing; callers should offer the
// online booking module instead of retrying.
var ErrNotConfigured = errors.New("shelter cloud is not configured")

// AvailabilityError wraps transport and upstream failures of an availability
// request.
type AvailabilityError struct {
	Message string
}

func (e *AvailabilityError) Error() string { return e.Message }

// Client is the Shelter Cloud online API client.
type Client struct {
	cfg    config.Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a client from configuration.
func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: time.Duration(cfg.ShelterTimeout * float64(time.Second)),
		},
		logger: utils.GetLogger(),
	}
}

// IsConfigured reports whether an API token is present.
func (c *Client) IsConfigured() bool { return c.cfg.ShelterToken != "" }

// GetQuotes fetches availability for a stay and returns price-sorted offers.
func (c *Client) GetQuotes(ctx context.Context, checkIn, checkOut string, guests models.Guests) ([]models.Quote, error) {
	room := map[string]any{"adults": guests.Adults}
	if guests.Children > 0 {
		ages := make([]string, 0, len(guests.ChildrenAges))
		for _, age := range guests.ChildrenAges {
			if age < 0 {
				age = 0
			}
			ages = append(ages, strconv.Itoa(age))
			if len(ages) == guests.Children {
				break
			}
		}
		if len(ages) > 0 {
			room["kidsAges"] = strings.Join(ages, ",")
		}
	}

	payload := map[string]any{
		"dateFrom": checkIn,
		"dateTo":   checkOut,
		"rooms":    []any{room},
	}

	data, err := c.request(ctx, c.cfg.ShelterURL+"/getVariants", payload)
	if err != nil {
		return nil, err
	}

	offers := extractOffers(data, checkIn, checkOut, guests)
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].TotalPrice < offers[j].TotalPrice
	})
	return offers, nil
}

// FetchHotelParams returns the hotel parameters document, for health checks
// and admin inspection.
func (c *Client) FetchHotelParams(ctx context.Context) (map[string]any, error) {
	data, err := c.request(ctx, c.cfg.ShelterURL+"/getHotelParams", map[string]any{})
	if err != nil {
		return nil, err
	}
	if inner, ok := data["data"].(map[string]any); ok {
		return inner, nil
	}
	return data, nil
}

// request posts the token-authenticated body and retries transient failures
// with exponential backoff. Client errors (4xx) are not retried.
func (c *Client) request(ctx context.Context, url string, payload map[string]any) (map[string]any, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	body := map[string]any{
		"token":    c.cfg.ShelterToken,
		"language": c.language(),
	}
	for k, v := range payload {
		body[k] = v
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, &AvailabilityError{Message: fmt.Sprintf("encode request: %v", err)}
	}

	var result map[string]any
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("HTTP_%d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("HTTP_%d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
		}
		result = safeJSON(raw)
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		c.logger.Error("shelter cloud request failed", zap.String("url", url), zap.Error(err))
		return nil, &AvailabilityError{Message: err.Error()}
	}
	return result, nil
}

func (c *Client) language() string {
	if c.cfg.ShelterLanguage != "" {
		return c.cfg.ShelterLanguage
	}
	return "ru"
}

// safeJSON tolerates non-object payloads: arrays are wrapped under "data",
// anything unparsable collapses to empty.
func safeJSON(raw []byte) map[string]any {
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err == nil {
		return asMap
	}
	var asList []any
	if err := json.Unmarshal(raw, &asList); err == nil {
		return map[string]any{"data": asList}
	}
	return map[string]any{}
}

// extractOffers understands both response shapes the API produces: the
// chunked variant/category payload and the plain rooms/rates listing.
func extractOffers(payload map[string]any, checkIn, checkOut string, guests models.Guests) []models.Quote {
	var offers []models.Quote

	chunks, _ := payload["data"].([]any)
	if chunks != nil {
		offers = extractChunked(chunks, checkIn, checkOut, guests)
		if len(offers) > 0 {
			return offers
		}
	}

	var rooms []any
	if raw, ok := payload["rooms"].([]any); ok {
		rooms = raw
	} else if raw, ok := payload["items"].([]any); ok {
		rooms = raw
	} else {
		for _, chunk := range chunks {
			switch v := chunk.(type) {
			case []any:
				for _, item := range v {
					if m, ok := item.(map[string]any); ok {
						rooms = append(rooms, m)
					}
				}
			case map[string]any:
				rooms = append(rooms, v)
			}
		}
	}

	for _, raw := range rooms {
		room, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		roomName := strings.TrimSpace(firstString(room, "name", "roomName", "title"))
		if roomName == "" {
			roomName = "Номер"
		}
		roomArea := firstFloat(room, "roomArea", "area")

		rates, _ := room["rates"].([]any)
		if rates == nil {
			rates, _ = room["offers"].([]any)
		}
		for _, rawRate := range rates {
			rate, ok := rawRate.(map[string]any)
			if !ok {
				continue
			}
			priceInfo, _ := rate["total"].(map[string]any)
			if priceInfo == nil {
				priceInfo, _ = rate["price"].(map[string]any)
			}
			amount := firstFloat(priceInfo, "amount", "value")
			if amount == nil {
				continue
			}
			currency := strings.ToUpper(firstString(priceInfo, "currency"))
			if currency == "" {
				currency = "RUB"
			}
			breakfast := false
			if mealPlan, ok := rate["mealPlan"].(map[string]any); ok {
				breakfast = truthy(mealPlan["breakfastIncluded"]) || truthy(mealPlan["includesBreakfast"])
			} else {
				breakfast = truthy(rate["breakfastIncluded"]) || truthy(rate["includesBreakfast"])
			}

			offers = append(offers, models.Quote{
				RoomName:          roomName,
				TotalPrice:        *amount,
				Currency:          currency,
				BreakfastIncluded: breakfast,
				RoomArea:          roomArea,
				CheckIn:           checkIn,
				CheckOut:          checkOut,
				Guests:            guests,
			})
		}
	}
	return offers
}

// extractChunked joins price variants with their room category chunks by
// category id.
func extractChunked(chunks []any, checkIn, checkOut string, guests models.Guests) []models.Quote {
	categories := map[string]map[string]any{}
	var variants []map[string]any

	collect := func(item map[string]any) {
		_, hasCategory := item["roomCategoryID"]
		_, hasPrice := item["price"]
		_, hasPriceRub := item["priceRub"]
		if hasCategory && (hasPrice || hasPriceRub) {
			variants = append(variants, item)
			return
		}
		_, hasRooms := item["availableRooms"]
		_, hasBeds := item["availableBeds"]
		if _, hasID := item["id"]; hasID && (hasRooms || hasBeds) {
			if key := normalizeCategoryID(item["id"]); key != "" {
				categories[key] = item
			}
		}
	}

	for _, chunk := range chunks {
		switch v := chunk.(type) {
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					collect(m)
				}
			}
		case map[string]any:
			collect(v)
		}
	}

	var offers []models.Quote
	for _, variant := range variants {
		var category map[string]any
		if key := normalizeCategoryID(variant["roomCategoryID"]); key != "" {
			category = categories[key]
		}
		roomName := strings.TrimSpace(firstString(category, "name"))
		if roomName == "" {
			roomName = strings.TrimSpace(firstString(variant, "roomName", "name"))
		}
		if roomName == "" {
			roomName = "Номер"
		}
		roomArea := firstFloat(category, "roomArea")

		amount := firstFloat(variant, "price", "priceRub", "priceWithoutDiscount")
		if amount == nil {
			continue
		}
		currency := strings.ToUpper(firstString(variant, "currency"))
		if currency == "" {
			currency = "RUB"
		}

		breakfast := truthy(variant["breakfastIncluded"]) || truthy(variant["includesBreakfast"])

		offers = append(offers, models.Quote{
			RoomName:          roomName,
			TotalPrice:        *amount,
			Currency:          currency,
			BreakfastIncluded: breakfast,
			RoomArea:          roomArea,
			CheckIn:           checkIn,
			CheckOut:          checkOut,
			Guests:            guests,
		})
	}
	return offers
}

func normalizeCategoryID(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if parsed, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return strconv.FormatInt(parsed, 10)
		}
		return trimmed
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstFloat(m map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			value := v
			return &value
		case int:
			value := float64(v)
			return &value
		case string:
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return &parsed
			}
		}
	}
	return nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}
