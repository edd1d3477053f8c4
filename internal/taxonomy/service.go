package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coreflow-cms/internal/store"
)

var (
	ErrNotFound    = errors.New("term not found")
	ErrNameExists  = errors.New("term name already exists")
	ErrInvalidKind = errors.New("invalid term kind")
	ErrInvalidName = errors.New("invalid term name")
)

// Dependents removes records that reference a term. Case studies implement it so that
// deleting a term deletes everything filed under it.
type Dependents interface {
	DeleteByTerm(ctx context.Context, kind Kind, termID string) (int64, error)
}

type Service struct {
	repo       Repository
	dependents Dependents
	location   *time.Location
}

func NewService(repo Repository, location *time.Location) *Service {
	return &Service{
		repo:     repo,
		location: location,
	}
}

// SetDependents wires the cascade target. It is separate from NewService because the
// case study service itself depends on this one.
func (s *Service) SetDependents(d Dependents) {
	s.dependents = d
}

func (s *Service) Create(ctx context.Context, kind Kind, req UpsertRequest) (Term, error) {
	if _, ok := kinds[kind]; !ok {
		return Term{}, ErrInvalidKind
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 100 {
		return Term{}, ErrInvalidName
	}
	if _, err := s.repo.GetByName(ctx, kind, name); err == nil {
		return Term{}, ErrNameExists
	} else if !errors.Is(err, ErrNotFound) {
		return Term{}, err
	}

	now := time.Now().In(s.location)
	item := Term{
		ID:        store.NewID(),
		Kind:      kind,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return Term{}, err
	}
	return item, nil
}

// Ensure returns the term named name, creating it when missing.
func (s *Service) Ensure(ctx context.Context, kind Kind, name string) (Term, error) {
	item, err := s.repo.GetByName(ctx, kind, strings.TrimSpace(name))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Term{}, err
	}
	return s.Create(ctx, kind, UpsertRequest{Name: name})
}

func (s *Service) Rename(ctx context.Context, id string, req UpsertRequest) (Term, error) {
	id = strings.TrimSpace(id)
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 100 {
		return Term{}, ErrInvalidName
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Term{}, err
	}
	if existing, err := s.repo.GetByName(ctx, current.Kind, name); err == nil && existing.ID != id {
		return Term{}, ErrNameExists
	}
	return s.repo.Rename(ctx, id, name, time.Now().In(s.location))
}

// Delete removes the term and, first, every case study filed under it.
func (s *Service) Delete(ctx context.Context, id string) (int64, error) {
	id = strings.TrimSpace(id)
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	var removed int64
	if s.dependents != nil {
		removed, err = s.dependents.DeleteByTerm(ctx, item.Kind, item.ID)
		if err != nil {
			return 0, fmt.Errorf("delete term dependents: %w", err)
		}
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return removed, err
	}
	if !deleted {
		return removed, ErrNotFound
	}
	return removed, nil
}

func (s *Service) Get(ctx context.Context, id string) (Term, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

func (s *Service) List(ctx context.Context, kind Kind) ([]Term, error) {
	if _, ok := kinds[kind]; !ok {
		return nil, ErrInvalidKind
	}
	return s.repo.List(ctx, kind)
}

// Resolve loads the given terms keyed by id. Unknown ids are absent from the map.
func (s *Service) Resolve(ctx context.Context, ids ...string) (map[string]Term, error) {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	items, err := s.repo.GetMany(ctx, uniq)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Term, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

// Validate checks that id names an existing term of the given kind.
func (s *Service) Validate(ctx context.Context, kind Kind, id string) error {
	item, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if item.Kind != kind {
		return ErrNotFound
	}
	return nil
}
