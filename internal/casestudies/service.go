package casestudies

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"coreflow-cms/internal/cache"
	"coreflow-cms/internal/comments"
	"coreflow-cms/internal/store"
	"coreflow-cms/internal/taxonomy"
	"coreflow-cms/internal/utils"

	"github.com/k3a/html2text"
)

var (
	ErrNotFound     = errors.New("case study not found")
	ErrSlugExists   = errors.New("slug already exists")
	ErrTitleExists  = errors.New("title already exists")
	ErrInvalidSlug  = errors.New("invalid slug")
	ErrTermNotFound = errors.New("referenced term not found")
	ErrPageNotFound = errors.New("page not found")
)

const (
	excerptLength = 200
	generationKey = "casestudies:gen"
)

// Terms is what the service needs from the taxonomy.
type Terms interface {
	Validate(ctx context.Context, kind taxonomy.Kind, id string) error
	Resolve(ctx context.Context, ids ...string) (map[string]taxonomy.Term, error)
}

type ImageResolver interface {
	ResolveImageURL(ref string) string
}

type CommentCounter interface {
	ApprovedCounts(ctx context.Context, caseStudyIDs []string) (map[string]int64, error)
}

type Service struct {
	repo     Repository
	terms    Terms
	images   ImageResolver
	counter  CommentCounter
	cache    cache.Cache
	cacheTTL time.Duration
	location *time.Location
	log      *slog.Logger
}

type Options struct {
	Terms    Terms
	Images   ImageResolver
	Comments CommentCounter
	Cache    cache.Cache
	CacheTTL time.Duration
	Location *time.Location
	Log      *slog.Logger
}

func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:     repo,
		terms:    opts.Terms,
		images:   opts.Images,
		counter:  opts.Comments,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		location: opts.Location,
		log:      opts.Log,
	}
	if s.cache == nil {
		s.cache = cache.NewNoop()
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

func (s *Service) Create(ctx context.Context, req UpsertRequest) (CaseStudy, error) {
	item, err := s.build(ctx, "", req)
	if err != nil {
		return CaseStudy{}, err
	}

	now := time.Now().In(s.location)
	item.ID = store.NewID()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.repo.Create(ctx, item); err != nil {
		return CaseStudy{}, err
	}
	s.Invalidate(ctx)
	return item, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpsertRequest) (CaseStudy, error) {
	id = strings.TrimSpace(id)
	if _, err := s.repo.Get(ctx, id); err != nil {
		return CaseStudy{}, err
	}
	item, err := s.build(ctx, id, req)
	if err != nil {
		return CaseStudy{}, err
	}
	item.ID = id
	item.UpdatedAt = time.Now().In(s.location)

	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		return CaseStudy{}, err
	}
	s.Invalidate(ctx)
	return updated, nil
}

// SetImage replaces the image reference only. Used when images move to hosted storage.
func (s *Service) SetImage(ctx context.Context, id, image string) error {
	if err := s.repo.SetImage(ctx, strings.TrimSpace(id), strings.TrimSpace(image)); err != nil {
		return err
	}
	s.Invalidate(ctx)
	return nil
}

// Delete removes the case study and its comments.
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.Invalidate(ctx)
	return nil
}

// DeleteByTerm removes every case study filed under the term. It satisfies
// taxonomy.Dependents.
func (s *Service) DeleteByTerm(ctx context.Context, kind taxonomy.Kind, termID string) (int64, error) {
	field, ok := termFields[kind]
	if !ok {
		return 0, taxonomy.ErrInvalidKind
	}
	n, err := s.repo.DeleteByTerm(ctx, field, termID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Invalidate(ctx)
	}
	return n, nil
}

var termFields = map[taxonomy.Kind]string{
	taxonomy.KindClient:   "client_id",
	taxonomy.KindLocation: "location_id",
	taxonomy.KindIndustry: "industry_id",
}

// ListPage returns one page of case studies ordered by title. Pages start at 1 and a page
// past the last one is ErrPageNotFound; an empty catalogue still has an (empty) first page.
func (s *Service) ListPage(ctx context.Context, page int) (Page, error) {
	if page < 1 {
		return Page{}, ErrPageNotFound
	}

	key := s.cacheKey(ctx, fmt.Sprintf("page:%d", page))
	var cached Page
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	total, err := s.repo.Count(ctx, ListFilter{})
	if err != nil {
		return Page{}, err
	}
	totalPages := int((total + PageSize - 1) / PageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		return Page{}, ErrPageNotFound
	}

	items, err := s.repo.List(ctx, ListFilter{}, PageSize, int64((page-1)*PageSize))
	if err != nil {
		return Page{}, err
	}
	summaries, err := s.summarize(ctx, items)
	if err != nil {
		return Page{}, err
	}

	out := Page{
		Items:      summaries,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
	s.toCache(ctx, key, out)
	return out, nil
}

// GetBySlug returns the display-ready case study for slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Detail, error) {
	slug = strings.TrimSpace(slug)
	key := s.cacheKey(ctx, "slug:"+slug)
	var cached Detail
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	item, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return Detail{}, err
	}
	summaries, err := s.summarize(ctx, []CaseStudy{item})
	if err != nil {
		return Detail{}, err
	}
	out := Detail{Summary: summaries[0], Description: item.Description}
	s.toCache(ctx, key, out)
	return out, nil
}

// FindBySlug returns the stored record without decoration.
func (s *Service) FindBySlug(ctx context.Context, slug string) (CaseStudy, error) {
	return s.repo.GetBySlug(ctx, strings.TrimSpace(slug))
}

func (s *Service) Get(ctx context.Context, id string) (CaseStudy, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

// ListAdmin lists case studies for the admin API, optionally searching titles.
func (s *Service) ListAdmin(ctx context.Context, filter ListFilter, limit, offset int64) ([]CaseStudy, int64, error) {
	filter.Title = strings.TrimSpace(filter.Title)
	items, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// All walks every case study in title order.
func (s *Service) All(ctx context.Context) ([]CaseStudy, error) {
	total, err := s.repo.Count(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ListFilter{}, total, 0)
}

// Invalidate drops every cached public read by moving to a new cache generation.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Set(ctx, generationKey, []byte(store.NewID()), 0); err != nil {
		s.log.Warn("case studies cache: invalidate failed", slog.String("error", err.Error()))
	}
}

func (s *Service) build(ctx context.Context, id string, req UpsertRequest) (CaseStudy, error) {
	title := strings.TrimSpace(req.Title)
	slug := normalizeSlug(req.Slug, title)
	if slug == "" {
		return CaseStudy{}, ErrInvalidSlug
	}

	if existing, err := s.repo.GetBySlug(ctx, slug); err == nil && existing.ID != id {
		return CaseStudy{}, ErrSlugExists
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return CaseStudy{}, err
	}
	if existing, err := s.repo.GetByTitle(ctx, title); err == nil && existing.ID != id {
		return CaseStudy{}, ErrTitleExists
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return CaseStudy{}, err
	}

	item := CaseStudy{
		Slug:        slug,
		Title:       title,
		ClientID:    strings.TrimSpace(req.ClientID),
		LocationID:  strings.TrimSpace(req.LocationID),
		IndustryID:  strings.TrimSpace(req.IndustryID),
		Description: strings.TrimSpace(req.Description),
		Excerpt:     strings.TrimSpace(req.Excerpt),
		Image:       strings.TrimSpace(req.Image),
	}
	if s.terms != nil {
		refs := []struct {
			kind taxonomy.Kind
			id   string
		}{
			{taxonomy.KindClient, item.ClientID},
			{taxonomy.KindLocation, item.LocationID},
			{taxonomy.KindIndustry, item.IndustryID},
		}
		for _, ref := range refs {
			if err := s.terms.Validate(ctx, ref.kind, ref.id); err != nil {
				if errors.Is(err, taxonomy.ErrNotFound) {
					return CaseStudy{}, fmt.Errorf("%w: %s %q", ErrTermNotFound, ref.kind, ref.id)
				}
				return CaseStudy{}, err
			}
		}
	}
	return item, nil
}

func (s *Service) summarize(ctx context.Context, items []CaseStudy) ([]Summary, error) {
	out := make([]Summary, 0, len(items))
	if len(items) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(items))
	termIDs := make([]string, 0, 3*len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
		termIDs = append(termIDs, item.ClientID, item.LocationID, item.IndustryID)
	}

	terms := map[string]taxonomy.Term{}
	if s.terms != nil {
		resolved, err := s.terms.Resolve(ctx, termIDs...)
		if err != nil {
			return nil, err
		}
		terms = resolved
	}
	counts := map[string]int64{}
	if s.counter != nil {
		c, err := s.counter.ApprovedCounts(ctx, ids)
		if err != nil {
			return nil, err
		}
		counts = c
	}

	for _, item := range items {
		excerpt := item.Excerpt
		if excerpt == "" {
			excerpt = deriveExcerpt(item.Description)
		}
		image := item.Image
		if s.images != nil {
			image = s.images.ResolveImageURL(item.Image)
		}
		out = append(out, Summary{
			ID:           item.ID,
			Slug:         item.Slug,
			Title:        item.Title,
			Client:       terms[item.ClientID].Name,
			Location:     terms[item.LocationID].Name,
			Industry:     terms[item.IndustryID].Name,
			Excerpt:      excerpt,
			ImageURL:     image,
			CommentCount: counts[item.ID],
		})
	}
	return out, nil
}

// cacheKey scopes key to the current cache generation, starting one if none exists.
func (s *Service) cacheKey(ctx context.Context, key string) string {
	gen, ok, err := s.cache.Get(ctx, generationKey)
	if err != nil || !ok {
		fresh := []byte(store.NewID())
		if err == nil {
			_ = s.cache.Set(ctx, generationKey, fresh, 0)
		}
		gen = fresh
	}
	return "casestudies:" + string(gen) + ":" + key
}

func (s *Service) fromCache(ctx context.Context, key string, v interface{}) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("case studies cache: get failed", slog.String("error", err.Error()))
		return false
	}
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (s *Service) toCache(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.log.Warn("case studies cache: set failed", slog.String("error", err.Error()))
	}
}

// Target is the view of a case study the comment workflow needs.
func (c CaseStudy) Target() comments.Target {
	return comments.Target{ID: c.ID, Slug: c.Slug, Title: c.Title}
}

func normalizeSlug(slug, title string) string {
	raw := strings.TrimSpace(slug)
	if raw == "" {
		raw = strings.TrimSpace(title)
	}
	return utils.Slugify(raw)
}

// deriveExcerpt flattens rich text and cuts it at a word boundary.
func deriveExcerpt(description string) string {
	text := strings.Join(strings.Fields(html2text.HTML2Text(description)), " ")
	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}
	runes := []rune(text)[:excerptLength]
	cut := len(runes)
	for i := len(runes) - 1; i > excerptLength/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsPunct) + "…"
}
