package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/puertonuevo/portal-api/internal/models"
	"github.com/puertonuevo/portal-api/internal/observability"
	"github.com/puertonuevo/portal-api/internal/repository"
)

const (
	legacyGuardianLimit = 80
	legacyScanLimit     = 240
)

// AmbienteResolver determines which ambientes a family may see.
type AmbienteResolver interface {
	Resolve(ctx context.Context, uid string) []string
}

type ambienteSet map[string]struct{}

func (s ambienteSet) addChildren(children []models.Child) {
	for _, child := range children {
		ambiente := strings.ToLower(strings.TrimSpace(child.Ambiente))
		if models.IsValidAmbiente(ambiente) {
			s[ambiente] = struct{}{}
		}
	}
}

func (s ambienteSet) sorted() []string {
	values := make([]string, 0, len(s))
	for value := range s {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}

// ambienteLookup is one step of the resolution chain. When done is true the
// chain stops and found is the answer.
type ambienteLookup struct {
	name string
	run  func(ctx context.Context, uid string, found ambienteSet) (done bool, err error)
}

type ambienteResolver struct {
	families repository.FamilyRepository
	children repository.ChildRepository
	chain    []ambienteLookup
	logger   zerolog.Logger
}

// NewAmbienteResolver builds the resolver. Lookups run in order: the family
// profile's child list, then the guardian index, then a scan of every
// ambiente's children for rows written before the index existed.
func NewAmbienteResolver(families repository.FamilyRepository, children repository.ChildRepository, logger zerolog.Logger) AmbienteResolver {
	r := &ambienteResolver{
		families: families,
		children: children,
		logger:   logger.With().Str("component", "ambiente_resolver").Logger(),
	}
	r.chain = []ambienteLookup{
		{name: "profile", run: r.fromProfile},
		{name: "guardian_index", run: r.fromGuardianIndex},
		{name: "ambiente_scan", run: r.fromAmbienteScan},
	}
	return r
}

// Resolve never fails: lookup errors are logged and the next lookup runs.
func (r *ambienteResolver) Resolve(ctx context.Context, uid string) []string {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return []string{}
	}

	found := ambienteSet{}
	for _, lookup := range r.chain {
		done, err := lookup.run(ctx, uid, found)
		if err != nil {
			r.logger.Warn().Err(err).Str("uid", uid).Str("lookup", lookup.name).Msg("ambiente lookup failed")
			continue
		}
		if done {
			observability.AmbienteResolutions().WithLabelValues(lookup.name).Inc()
			return found.sorted()
		}
	}

	if len(found) == 0 {
		observability.AmbienteResolutions().WithLabelValues("none").Inc()
	} else {
		observability.AmbienteResolutions().WithLabelValues("partial").Inc()
	}
	return found.sorted()
}

func (r *ambienteResolver) fromProfile(ctx context.Context, uid string, found ambienteSet) (bool, error) {
	profile, err := r.families.GetByUID(ctx, uid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	ids := uniqueTrimmed(profile.ChildIDs)
	resolved := ambienteSet{}
	for start := 0; start < len(ids); start += repository.MaxInBatch {
		end := start + repository.MaxInBatch
		if end > len(ids) {
			end = len(ids)
		}
		children, err := r.children.ListByIDs(ctx, ids[start:end])
		if err != nil {
			return false, err
		}
		resolved.addChildren(children)
	}

	for ambiente := range resolved {
		found[ambiente] = struct{}{}
	}
	return len(resolved) > 0, nil
}

func (r *ambienteResolver) fromGuardianIndex(ctx context.Context, uid string, found ambienteSet) (bool, error) {
	children, err := r.children.ListByGuardian(ctx, uid, legacyGuardianLimit)
	if err != nil {
		return false, err
	}
	found.addChildren(children)
	return len(found) == len(models.Ambientes), nil
}

func (r *ambienteResolver) fromAmbienteScan(ctx context.Context, uid string, found ambienteSet) (bool, error) {
	children, err := r.children.ListByAmbientes(ctx, models.Ambientes, legacyScanLimit)
	if err != nil {
		return false, err
	}

	matched := make([]models.Child, 0)
	for _, child := range children {
		if child.HasGuardian(uid) {
			matched = append(matched, child)
		}
	}
	found.addChildren(matched)
	return true, nil
}

func uniqueTrimmed(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
