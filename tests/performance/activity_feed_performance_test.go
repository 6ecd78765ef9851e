package performance_test

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/puertonuevo/portal-api/internal/handler"
	"github.com/puertonuevo/portal-api/internal/middleware"
	"github.com/puertonuevo/portal-api/internal/models"
	"github.com/puertonuevo/portal-api/internal/repository"
	"github.com/puertonuevo/portal-api/internal/service"
	"github.com/puertonuevo/portal-api/internal/textfix"
)

func setupFeedPerformanceApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:feed_perf?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Activity{}, &models.FamilyProfile{}, &models.Child{}))

	// Seed dataset
	now := time.Now().UTC()
	for i := 0; i < 300; i++ {
		ambiente := models.Ambientes[i%len(models.Ambientes)]
		activity := models.Activity{
			ID:            fmt.Sprintf("act-%03d", i),
			Ambiente:      ambiente,
			Title:         fmt.Sprintf("Actividad NÂº %d", i),
			Category:      "tarea",
			CategoryLabel: "Tarea",
			Items: datatypes.JSONSlice[models.ActivityItem]{
				{Kind: models.ItemKindLink, Label: "example.org", URL: "https://example.org", Host: "example.org"},
			},
			CreatedBy:     "teacher-1",
			CreatedByRole: models.RoleDocente,
			CreatedAt:     now.Add(-time.Duration(i) * time.Hour),
		}
		require.NoError(t, db.Create(&activity).Error)
	}
	require.NoError(t, db.Create(&models.FamilyProfile{UID: "fam-1", Role: models.RoleFamilia, ChildIDs: datatypes.JSONSlice[string]{"c1"}}).Error)
	require.NoError(t, db.Create(&models.Child{ID: "c1", Ambiente: models.AmbienteTaller2, Responsables: datatypes.JSON(`[{"uid":"fam-1"}]`)}).Error)

	fixer, err := textfix.New(512)
	require.NoError(t, err)
	logger := zerolog.Nop()
	activityService := service.NewActivityService(service.ActivityServiceConfig{
		Activities: repository.NewActivityRepository(db),
		Resolver:   service.NewAmbienteResolver(repository.NewFamilyRepository(db), repository.NewChildRepository(db), logger),
		Fixer:      fixer,
	}, logger)

	app := fiber.New()
	group := app.Group("/api/v1/activities", func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, "fam-1")
		c.Locals(middleware.LocalUserRole, models.RoleFamilia)
		return c.Next()
	})
	handler.NewActivityHandler(activityService, logger).Register(group)

	return app
}

func TestFamilyFeedP95LatencyBelow250ms(t *testing.T) {
	app := setupFeedPerformanceApp(t)

	runs := 40
	durations := make([]time.Duration, 0, runs)

	for i := 0; i < runs; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/activities?sinceDays=0&limit=200", nil)
		start := time.Now()
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	index := int(math.Ceil(0.95*float64(len(durations)))) - 1
	if index < 0 {
		index = 0
	}
	p95 := durations[index]

	require.LessOrEqual(t, p95, 250*time.Millisecond)
}
