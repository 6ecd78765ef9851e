package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/puertonuevo/portal-api/internal/models"
	"github.com/puertonuevo/portal-api/internal/repository"
)

type stubFamilyRepo struct {
	profiles map[string]models.FamilyProfile
	err      error
	calls    int
}

func (s *stubFamilyRepo) GetByUID(ctx context.Context, uid string) (models.FamilyProfile, error) {
	s.calls++
	if s.err != nil {
		return models.FamilyProfile{}, s.err
	}
	profile, ok := s.profiles[uid]
	if !ok {
		return models.FamilyProfile{}, gorm.ErrRecordNotFound
	}
	return profile, nil
}

type stubChildRepo struct {
	children      []models.Child
	idBatches     [][]string
	guardianCalls int
	ambienteCalls int
	guardianErr   error
}

func (s *stubChildRepo) ListByIDs(ctx context.Context, ids []string) ([]models.Child, error) {
	if len(ids) > repository.MaxInBatch {
		return nil, fmt.Errorf("batch too large: %d", len(ids))
	}
	s.idBatches = append(s.idBatches, ids)
	wanted := map[string]struct{}{}
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	result := make([]models.Child, 0)
	for _, child := range s.children {
		if _, ok := wanted[child.ID]; ok {
			result = append(result, child)
		}
	}
	return result, nil
}

func (s *stubChildRepo) ListByGuardian(ctx context.Context, uid string, limit int) ([]models.Child, error) {
	s.guardianCalls++
	if s.guardianErr != nil {
		return nil, s.guardianErr
	}
	result := make([]models.Child, 0)
	for _, child := range s.children {
		if child.GuardianIndex != "" && child.HasGuardian(uid) {
			result = append(result, child)
		}
	}
	return result, nil
}

func (s *stubChildRepo) ListByAmbientes(ctx context.Context, ambientes []string, limit int) ([]models.Child, error) {
	s.ambienteCalls++
	result := make([]models.Child, 0)
	for _, child := range s.children {
		for _, ambiente := range ambientes {
			if child.Ambiente == ambiente {
				result = append(result, child)
			}
		}
	}
	return result, nil
}

func child(id, ambiente, responsables string, indexed bool) models.Child {
	c := models.Child{ID: id, Ambiente: ambiente, Responsables: datatypes.JSON(responsables)}
	if indexed {
		c.GuardianIndex = models.EncodeGuardianIndex(c.GuardianUIDs())
	}
	return c
}

func TestAmbienteResolverPrimaryPathSkipsLegacyLookups(t *testing.T) {
	families := &stubFamilyRepo{profiles: map[string]models.FamilyProfile{
		"fam-1": {UID: "fam-1", ChildIDs: datatypes.JSONSlice[string]{"c1", "c2"}},
	}}
	children := &stubChildRepo{children: []models.Child{
		child("c1", models.AmbienteTaller2, `["fam-1"]`, true),
		child("c2", models.AmbienteTaller1, `["fam-1"]`, true),
	}}

	resolver := NewAmbienteResolver(families, children, testLogger())
	ambientes := resolver.Resolve(context.Background(), "fam-1")

	require.Equal(t, []string{models.AmbienteTaller1, models.AmbienteTaller2}, ambientes)
	require.Zero(t, children.guardianCalls)
	require.Zero(t, children.ambienteCalls)
}

func TestAmbienteResolverBatchesChildIDs(t *testing.T) {
	ids := make(datatypes.JSONSlice[string], 0, 23)
	all := make([]models.Child, 0, 23)
	for i := 0; i < 23; i++ {
		id := fmt.Sprintf("c%02d", i)
		ids = append(ids, id, " "+id+" ")
		ambiente := models.AmbienteTaller1
		if i == 22 {
			ambiente = models.AmbienteTaller2
		}
		all = append(all, child(id, ambiente, `["fam-1"]`, true))
	}
	families := &stubFamilyRepo{profiles: map[string]models.FamilyProfile{"fam-1": {UID: "fam-1", ChildIDs: ids}}}
	children := &stubChildRepo{children: all}

	ambientes := NewAmbienteResolver(families, children, testLogger()).Resolve(context.Background(), "fam-1")

	require.Equal(t, []string{models.AmbienteTaller1, models.AmbienteTaller2}, ambientes)
	require.Len(t, children.idBatches, 3)
	require.Len(t, children.idBatches[2], 3)
}

func TestAmbienteResolverFallsBackToGuardianIndex(t *testing.T) {
	families := &stubFamilyRepo{profiles: map[string]models.FamilyProfile{}}
	children := &stubChildRepo{children: []models.Child{
		child("c1", models.AmbienteTaller1, `[{"uid": "fam-1"}]`, true),
		child("c2", models.AmbienteTaller2, `["fam-1", "fam-9"]`, true),
	}}

	ambientes := NewAmbienteResolver(families, children, testLogger()).Resolve(context.Background(), "fam-1")

	require.Equal(t, []string{models.AmbienteTaller1, models.AmbienteTaller2}, ambientes)
	require.Equal(t, 1, children.guardianCalls)
	require.Zero(t, children.ambienteCalls, "both ambientes found, no scan needed")
}

func TestAmbienteResolverScansLegacyRows(t *testing.T) {
	families := &stubFamilyRepo{profiles: map[string]models.FamilyProfile{}}
	children := &stubChildRepo{children: []models.Child{
		child("c1", models.AmbienteTaller1, `["fam-1"]`, true),
		child("c2", models.AmbienteTaller2, `[{"uid": " fam-1 "}]`, false),
		child("c3", models.AmbienteTaller2, `["fam-2"]`, false),
	}}

	ambientes := NewAmbienteResolver(families, children, testLogger()).Resolve(context.Background(), "fam-1")

	require.Equal(t, []string{models.AmbienteTaller1, models.AmbienteTaller2}, ambientes)
	require.Equal(t, 1, children.ambienteCalls)
}

func TestAmbienteResolverSwallowsErrors(t *testing.T) {
	families := &stubFamilyRepo{err: errors.New("connection reset")}
	children := &stubChildRepo{
		guardianErr: errors.New("timeout"),
		children:    []models.Child{child("c1", models.AmbienteTaller2, `["fam-1"]`, false)},
	}

	ambientes := NewAmbienteResolver(families, children, testLogger()).Resolve(context.Background(), "fam-1")

	require.Equal(t, []string{models.AmbienteTaller2}, ambientes)
	require.Equal(t, 1, families.calls)
	require.Equal(t, 1, children.guardianCalls)
}

func TestAmbienteResolverUnknownFamily(t *testing.T) {
	resolver := NewAmbienteResolver(&stubFamilyRepo{}, &stubChildRepo{}, testLogger())

	require.Empty(t, resolver.Resolve(context.Background(), "nobody"))
	require.Empty(t, resolver.Resolve(context.Background(), "  "))
}
