package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ambientes a family can be linked to through their children.
const (
	AmbienteTaller1 = "taller1"
	AmbienteTaller2 = "taller2"
)

// Ambientes lists every valid ambiente tag in display order.
var Ambientes = []string{AmbienteTaller1, AmbienteTaller2}

// IsValidAmbiente reports whether value is a known ambiente tag.
func IsValidAmbiente(value string) bool {
	for _, ambiente := range Ambientes {
		if ambiente == value {
			return true
		}
	}
	return false
}

// ItemKind discriminates activity attachment descriptors.
type ItemKind string

const (
	ItemKindFile ItemKind = "file"
	ItemKindLink ItemKind = "link"
)

// ActivityItem is a single deliverable attached to an activity. File items
// carry the storage path needed to delete the backing object; link items
// carry the validated host.
type ActivityItem struct {
	Kind        ItemKind `json:"kind"`
	Label       string   `json:"label"`
	URL         string   `json:"url"`
	Path        string   `json:"path,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	Size        int64    `json:"size,omitempty"`
	Host        string   `json:"host,omitempty"`
}

// Activity is a piece of work or material published by staff for one ambiente.
type Activity struct {
	ID             string                            `gorm:"primaryKey;size:36" json:"id"`
	Ambiente       string                            `gorm:"size:16;not null;index" json:"ambiente"`
	Title          string                            `gorm:"size:160;not null" json:"title"`
	Description    string                            `gorm:"type:text" json:"description"`
	Category       string                            `gorm:"size:32;not null" json:"category"`
	CustomCategory string                            `gorm:"size:60" json:"custom_category"`
	CategoryLabel  string                            `gorm:"size:80;not null" json:"category_label"`
	DueDate        *time.Time                        `json:"due_date"`
	Items          datatypes.JSONSlice[ActivityItem] `gorm:"type:json" json:"items"`
	ItemCount      int                               `gorm:"not null" json:"item_count"`
	CreatedBy      string                            `gorm:"size:128;not null;index" json:"created_by"`
	CreatedByName  string                            `gorm:"size:160" json:"created_by_name"`
	CreatedByRole  string                            `gorm:"size:32;not null" json:"created_by_role"`
	CreatedAt      time.Time                         `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time                         `json:"updated_at"`
}

// BeforeSave keeps the cached item count in step with the item list.
func (a *Activity) BeforeSave(tx *gorm.DB) error {
	a.ItemCount = len(a.Items)
	return nil
}
