// Package purchase computes how much each catalog item's purchase counter
// should grow when a shopping list is sent or edited.
package purchase

import (
	"strings"

	"github.com/vyrodovalexey/shoplist/internal/model"
)

// Reconcile compares a list that was already recorded with its edited
// replacement and returns the increments to apply. Quantities of entries
// sharing an identifier are summed on both sides. An item missing from the
// previous list is credited in full, an item whose quantity grew is credited
// with the difference, and every other item is left out. Counters never
// decrease.
func Reconcile(previous []model.PayloadItem, submitted []model.ListItem) map[string]int {
	old := make(map[string]int, len(previous))
	for _, p := range previous {
		id := strings.TrimSpace(p.ItemID)
		if id == "" {
			continue
		}
		old[id] += p.Quantity
	}

	delta := make(map[string]int, len(submitted))
	for id, qty := range FullCredit(submitted) {
		was := old[id]
		switch {
		case was <= 0:
			delta[id] = qty
		case qty > was:
			delta[id] = qty - was
		}
	}
	return delta
}

// FullCredit credits every submitted item with its whole quantity. It is used
// for lists that did not replace an earlier record.
func FullCredit(submitted []model.ListItem) map[string]int {
	delta := make(map[string]int, len(submitted))
	for _, item := range submitted {
		id := strings.TrimSpace(item.ItemID)
		if id == "" {
			continue
		}
		delta[id] += item.EffectiveQuantity()
	}
	return delta
}
