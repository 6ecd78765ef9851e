package dto

import (
	"time"

	"github.com/puertonuevo/portal-api/internal/models"
)

// AuditListRequest defines filters for retrieving audit entries.
type AuditListRequest struct {
	Page       int
	PageSize   int
	ActorUID   string
	Action     string
	EntityType string
	EntityID   string
}

// AuditLogResponse serializes audit entries.
type AuditLogResponse struct {
	ID         uint                   `json:"id"`
	ActorUID   string                 `json:"actor_uid"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// AuditListResponse wraps paginated audit entries.
type AuditListResponse struct {
	Items      []AuditLogResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewAuditLogResponse converts a model into an audit DTO.
func NewAuditLogResponse(entry models.AuditLog) AuditLogResponse {
	metadata := map[string]interface{}{}
	for key, value := range entry.Metadata {
		metadata[key] = value
	}
	return AuditLogResponse{
		ID:         entry.ID,
		ActorUID:   entry.ActorUID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   metadata,
		CreatedAt:  entry.CreatedAt,
	}
}
