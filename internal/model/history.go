package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// PayloadItem is one entry of the JSON payload stored with a history record.
type PayloadItem struct {
	ItemID   string   `json:"item_id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Quantity int      `json:"quantity"`
	UnitType UnitType `json:"unit_type"`
}

// HistoryRecord is a sent shopping list as shown to the household.
type HistoryRecord struct {
	Timestamp    string        `json:"timestamp"`
	DisplayDate  string        `json:"display_date"`
	TotalItems   int           `json:"total_items"`
	UniqueItems  int           `json:"unique_items"`
	Items        []PayloadItem `json:"items"`
	ItemsDisplay string        `json:"items_display"`
	IsEditable   bool          `json:"is_editable"`
	MinutesAgo   int           `json:"minutes_ago"`
}

// PayloadFromList converts list items into their stored payload form.
func PayloadFromList(items []ListItem) []PayloadItem {
	payload := make([]PayloadItem, 0, len(items))
	for _, item := range items {
		payload = append(payload, PayloadItem{
			ItemID:   item.ItemID,
			Name:     item.Name,
			Category: item.Category,
			Quantity: item.EffectiveQuantity(),
			UnitType: item.UnitType,
		})
	}
	return payload
}

// EncodePayload renders the payload as the JSON text stored in the sheet.
func EncodePayload(items []PayloadItem) (string, error) {
	if items == nil {
		items = []PayloadItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodePayload parses a stored payload. A blank or malformed payload
// yields an empty list and ok=false; it never fails.
func DecodePayload(raw string) (items []PayloadItem, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []PayloadItem{}, false
	}

	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []PayloadItem{}, false
	}
	if items == nil {
		items = []PayloadItem{}
	}
	return items, true
}

// ItemsDisplay renders the payload as the human-readable summary stored
// next to the JSON, for example "Milk ×2, Apples (2 kg), Bread".
func ItemsDisplay(items []PayloadItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.Label())
	}
	return strings.Join(parts, ", ")
}

// Label is the item name decorated with its quantity when it is above one.
func (p PayloadItem) Label() string {
	switch {
	case p.Quantity <= 1:
		return p.Name
	case p.UnitType == UnitWeight:
		return p.Name + " (" + strconv.Itoa(p.Quantity) + " kg)"
	default:
		return p.Name + " ×" + strconv.Itoa(p.Quantity)
	}
}
