// Package taxonomy holds the fixed activity category table shared by the
// publishing forms and the activity service.
package taxonomy

import (
	"errors"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// CategoryOther is the category that requires a free-text custom label.
const CategoryOther = "otra"

// MaxCustomCategoryLength bounds the sanitized custom category, in runes.
const MaxCustomCategoryLength = 60

var (
	// ErrUnknownCategory indicates the category key is not part of the table.
	ErrUnknownCategory = errors.New("invalid activity category")
	// ErrCustomCategoryRequired indicates "otra" was chosen without a label.
	ErrCustomCategoryRequired = errors.New("custom category is required when category is otra")
)

// Category is one entry of the taxonomy.
type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Selection is a validated category choice ready to be stored.
type Selection struct {
	Category       string
	CustomCategory string
	Label          string
}

var categories = []Category{
	{Key: "tarea", Label: "Tarea"},
	{Key: "proyecto", Label: "Proyecto"},
	{Key: "investigacion", Label: "Investigación"},
	{Key: "lectura", Label: "Lectura"},
	{Key: "practica", Label: "Práctica"},
	{Key: "material", Label: "Material de estudio"},
	{Key: "evento", Label: "Evento"},
	{Key: CategoryOther, Label: "Otra"},
}

var labels = func() map[string]string {
	index := make(map[string]string, len(categories))
	for _, category := range categories {
		index[category.Key] = category.Label
	}
	return index
}()

var stripPolicy = bluemonday.StrictPolicy()

// All returns the categories in display order.
func All() []Category {
	return append([]Category(nil), categories...)
}

// IsValid reports whether key names a known category.
func IsValid(key string) bool {
	_, ok := labels[normalizeKey(key)]
	return ok
}

// Label resolves the display label of a category. For "otra" the custom text
// wins when present.
func Label(key, custom string) string {
	key = normalizeKey(key)
	if key == CategoryOther {
		if cleaned := SanitizeCustom(custom); cleaned != "" {
			return cleaned
		}
	}
	if label, ok := labels[key]; ok {
		return label
	}
	return ""
}

// SanitizeCustom strips markup from a custom category, collapses whitespace
// and truncates it to MaxCustomCategoryLength runes.
func SanitizeCustom(raw string) string {
	stripped := html.UnescapeString(stripPolicy.Sanitize(raw))
	collapsed := strings.Join(strings.Fields(stripped), " ")
	if utf8.RuneCountInString(collapsed) > MaxCustomCategoryLength {
		collapsed = strings.TrimSpace(string([]rune(collapsed)[:MaxCustomCategoryLength]))
	}
	return collapsed
}

// Resolve validates a category choice and derives its stored fields.
func Resolve(category, custom string) (Selection, error) {
	if !IsValid(category) {
		return Selection{}, ErrUnknownCategory
	}

	key := normalizeKey(category)
	if key != CategoryOther {
		return Selection{Category: key, Label: Label(key, "")}, nil
	}

	cleaned := SanitizeCustom(custom)
	if cleaned == "" {
		return Selection{}, ErrCustomCategoryRequired
	}
	return Selection{Category: key, CustomCategory: cleaned, Label: Label(key, cleaned)}, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
