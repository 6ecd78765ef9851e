package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/puertonuevo/portal-api/internal/dto"
	"github.com/puertonuevo/portal-api/internal/middleware"
	"github.com/puertonuevo/portal-api/internal/service"
	"github.com/puertonuevo/portal-api/internal/taxonomy"
)

type mockActivityService struct {
	family      map[string][]string
	familyCalls int

	listReq  *dto.ActivityListRequest
	listResp dto.ActivityListResponse

	activities map[string]dto.ActivityResponse

	created      *dto.ActivityCreateRequest
	createdFiles []*multipart.FileHeader
	createErr    error

	updated   *dto.ActivityUpdateRequest
	updateErr error

	deletedItems []dto.ActivityItemResponse
	deleteResp   dto.ActivityDeleteResponse
	actor        service.AuditActor
}

func (m *mockActivityService) FamilyAmbientes(_ context.Context, uid string) (dto.FamilyAmbientesResponse, error) {
	m.familyCalls++
	ambientes := m.family[uid]
	if ambientes == nil {
		ambientes = []string{}
	}
	return dto.FamilyAmbientesResponse{UID: uid, Ambientes: ambientes}, nil
}

func (m *mockActivityService) List(_ context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	m.listReq = &req
	return m.listResp, nil
}

func (m *mockActivityService) Get(_ context.Context, id string) (dto.ActivityResponse, error) {
	activity, ok := m.activities[id]
	if !ok {
		return dto.ActivityResponse{}, service.ErrActivityNotFound
	}
	return activity, nil
}

func (m *mockActivityService) Create(_ context.Context, payload dto.ActivityCreateRequest, files []*multipart.FileHeader) (dto.ActivityResponse, error) {
	m.created = &payload
	m.createdFiles = files
	if m.createErr != nil {
		return dto.ActivityResponse{}, m.createErr
	}
	return dto.ActivityResponse{ID: "act-new", Title: payload.Title, Ambiente: payload.Ambiente, ItemCount: len(files) + len(payload.Links)}, nil
}

func (m *mockActivityService) UpdateMeta(_ context.Context, id string, payload dto.ActivityUpdateRequest, actor service.AuditActor) (dto.ActivityResponse, error) {
	m.updated = &payload
	m.actor = actor
	if m.updateErr != nil {
		return dto.ActivityResponse{}, m.updateErr
	}
	activity := m.activities[id]
	if payload.Title != nil {
		activity.Title = *payload.Title
	}
	return activity, nil
}

func (m *mockActivityService) Delete(_ context.Context, id string, items []dto.ActivityItemResponse, actor service.AuditActor) (dto.ActivityDeleteResponse, error) {
	m.deletedItems = items
	m.actor = actor
	resp := m.deleteResp
	resp.ID = id
	return resp, nil
}

func (m *mockActivityService) Categories() []taxonomy.Category {
	return taxonomy.All()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
	Message string          `json:"message"`
}

func asUser(uid, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if uid != "" {
			c.Locals(middleware.LocalUserID, uid)
		}
		if role != "" {
			c.Locals(middleware.LocalUserRole, role)
		}
		return c.Next()
	}
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}
