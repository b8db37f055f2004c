package shoplist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vyrodovalexey/shoplist/internal/model"
)

func TestFormatMessage(t *testing.T) {
	apples := listItem("Apples", "Produce", 1, 2)
	apples.UnitType = model.UnitWeight

	items := []model.ListItem{
		listItem("Milk", "Dairy", 3, 2),
		apples,
		listItem("Bananas", "Produce", 1, 1),
		listItem("Cheese", "Dairy", 3, 0),
		listItem("Tape", "", model.DefaultAisleOrder, 1),
	}

	got := FormatMessage(items)

	want := "🛒 *Shopping List*\n\n" +
		"\n📍 *Produce*\n" +
		"  • Apples (2 kg)\n" +
		"  • Bananas\n" +
		"\n📍 *Dairy*\n" +
		"  • Milk × 2\n" +
		"  • Cheese\n" +
		"\n📍 *Other*\n" +
		"  • Tape\n" +
		"\n✅ Happy shopping!"
	assert.Equal(t, want, got)
}

func TestFormatMessage_RepeatedCategoryAfterSort(t *testing.T) {
	items := []model.ListItem{
		listItem("A", "Dairy", 3, 1),
		listItem("B", "Frozen", 3, 1),
		listItem("C", "Dairy", 3, 1),
	}

	got := FormatMessage(items)

	want := "🛒 *Shopping List*\n\n" +
		"\n📍 *Dairy*\n  • A\n" +
		"\n📍 *Frozen*\n  • B\n" +
		"\n📍 *Dairy*\n  • C\n" +
		"\n✅ Happy shopping!"
	assert.Equal(t, want, got)
}
