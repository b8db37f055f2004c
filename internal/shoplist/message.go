package shoplist

import (
	"strconv"
	"strings"

	"github.com/vyrodovalexey/shoplist/internal/model"
)

// Message framing.
const (
	MessageHeader   = "🛒 *Shopping List*\n\n"
	MessageFooter   = "\n✅ Happy shopping!"
	DefaultCategory = "Other"
)

// FormatMessage renders items as the text sent to the household: sorted by
// aisle and grouped under a heading whenever the category changes.
func FormatMessage(items []model.ListItem) string {
	var b strings.Builder
	b.WriteString(MessageHeader)

	current := ""
	first := true
	for _, item := range SortByAisle(items) {
		category := strings.TrimSpace(item.Category)
		if category == "" {
			category = DefaultCategory
		}
		if first || category != current {
			b.WriteString("\n📍 *")
			b.WriteString(category)
			b.WriteString("*\n")
			current = category
			first = false
		}

		b.WriteString("  • ")
		b.WriteString(item.Name)
		if qty := item.EffectiveQuantity(); qty > 1 {
			if item.UnitType == model.UnitWeight {
				b.WriteString(" (" + strconv.Itoa(qty) + " kg)")
			} else {
				b.WriteString(" × " + strconv.Itoa(qty))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(MessageFooter)
	return b.String()
}
