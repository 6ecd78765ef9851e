package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/puertonuevo/portal-api/internal/models"
)

// ActivityListRequest describes a recent-activities query. Nil values take
// the service defaults.
type ActivityListRequest struct {
	SinceDays *int
	Limit     *int
	Ambientes []string
}

// LinkInput is a link proposed as an activity deliverable.
type LinkInput struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ActivityCreateRequest carries the metadata of a new activity. Files travel
// separately as multipart headers.
type ActivityCreateRequest struct {
	Title          string      `json:"title" validate:"required,max=160"`
	Description    string      `json:"description" validate:"max=5000"`
	Ambiente       string      `json:"ambiente" validate:"required,ambiente"`
	Category       string      `json:"category" validate:"required"`
	CustomCategory string      `json:"custom_category"`
	DueDate        string      `json:"due_date"`
	Links          []LinkInput `json:"links"`
	CreatedBy      string      `json:"-" validate:"required"`
	CreatedByName  string      `json:"-"`
	CreatedByRole  string      `json:"-" validate:"required,oneof=docente coordinacion superadmin"`
}

// OptionalString records whether a JSON key was sent at all. Value is nil
// when the key was absent or explicitly null.
type OptionalString struct {
	Set   bool
	Value *string
}

// SetString returns a present OptionalString holding value.
func SetString(value string) OptionalString {
	return OptionalString{Set: true, Value: &value}
}

// String returns the value, or "" when absent or null.
func (o OptionalString) String() string {
	if o.Value == nil {
		return ""
	}
	return *o.Value
}

// UnmarshalJSON marks the field as present, including for null.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	o.Value = &value
	return nil
}

// ActivityUpdateRequest is a partial metadata update. Absent fields are left
// untouched; an empty or null due date clears it. camelCase keys are accepted
// as aliases of the snake_case ones.
type ActivityUpdateRequest struct {
	Title          *string        `json:"title"`
	Description    *string        `json:"description"`
	DueDate        OptionalString `json:"due_date"`
	Category       *string        `json:"category"`
	CustomCategory *string        `json:"custom_category"`
}

// UnmarshalJSON decodes the request, folding in the camelCase aliases.
func (r *ActivityUpdateRequest) UnmarshalJSON(data []byte) error {
	type plain ActivityUpdateRequest
	var aux struct {
		plain
		DueDateAlias        OptionalString `json:"dueDate"`
		CustomCategoryAlias *string        `json:"customCategory"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = ActivityUpdateRequest(aux.plain)
	if !r.DueDate.Set && aux.DueDateAlias.Set {
		r.DueDate = aux.DueDateAlias
	}
	if r.CustomCategory == nil && aux.CustomCategoryAlias != nil {
		r.CustomCategory = aux.CustomCategoryAlias
	}
	return nil
}

// IsEmpty reports whether the update carries no field at all.
func (r ActivityUpdateRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && !r.DueDate.Set && r.Category == nil && r.CustomCategory == nil
}

// ActivityItemResponse describes one deliverable.
type ActivityItemResponse struct {
	Kind        string `json:"kind"`
	Label       string `json:"label"`
	URL         string `json:"url"`
	Path        string `json:"path,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Host        string `json:"host,omitempty"`
}

// ActivityResponse represents an activity returned to the frontend.
type ActivityResponse struct {
	ID             string                 `json:"id"`
	Ambiente       string                 `json:"ambiente"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Category       string                 `json:"category"`
	CustomCategory string                 `json:"custom_category,omitempty"`
	CategoryLabel  string                 `json:"category_label"`
	DueDate        *time.Time             `json:"due_date"`
	Items          []ActivityItemResponse `json:"items"`
	ItemCount      int                    `json:"item_count"`
	CreatedBy      string                 `json:"created_by"`
	CreatedByName  string                 `json:"created_by_name"`
	CreatedByRole  string                 `json:"created_by_role"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// ActivityListResponse wraps the recent activities.
type ActivityListResponse struct {
	Items    []ActivityResponse `json:"items"`
	Count    int                `json:"count"`
	CacheHit bool               `json:"cache_hit"`
}

// ActivityDeleteResponse reports a deletion and the attachments that could
// not be cleaned up.
type ActivityDeleteResponse struct {
	ID       string   `json:"id"`
	Warnings []string `json:"warnings"`
}

// FamilyAmbientesResponse lists the ambientes visible to a family.
type FamilyAmbientesResponse struct {
	UID       string   `json:"uid"`
	Ambientes []string `json:"ambientes"`
}

// NewActivityResponse converts a model into its API representation.
func NewActivityResponse(activity models.Activity) ActivityResponse {
	items := make([]ActivityItemResponse, 0, len(activity.Items))
	for _, item := range activity.Items {
		items = append(items, ActivityItemResponse{
			Kind:        string(item.Kind),
			Label:       item.Label,
			URL:         item.URL,
			Path:        item.Path,
			ContentType: item.ContentType,
			Size:        item.Size,
			Host:        item.Host,
		})
	}

	return ActivityResponse{
		ID:             activity.ID,
		Ambiente:       activity.Ambiente,
		Title:          activity.Title,
		Description:    activity.Description,
		Category:       activity.Category,
		CustomCategory: activity.CustomCategory,
		CategoryLabel:  activity.CategoryLabel,
		DueDate:        activity.DueDate,
		Items:          items,
		ItemCount:      activity.ItemCount,
		CreatedBy:      activity.CreatedBy,
		CreatedByName:  activity.CreatedByName,
		CreatedByRole:  activity.CreatedByRole,
		CreatedAt:      activity.CreatedAt,
		UpdatedAt:      activity.UpdatedAt,
	}
}

// NewActivityResponseSlice converts a list of models.
func NewActivityResponseSlice(activities []models.Activity) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(activities))
	for _, activity := range activities {
		responses = append(responses, NewActivityResponse(activity))
	}
	return responses
}
