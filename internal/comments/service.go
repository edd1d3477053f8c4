package comments

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/metrics"
	"coreflow-cms/internal/store"
)

var (
	ErrNotFound        = errors.New("comment not found")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed")
	ErrInvalidContent  = errors.New("invalid comment content")
)

// Notifier tells moderators that a comment is waiting for review.
type Notifier interface {
	SendCommentPendingNotification(ctx context.Context, comment Comment, target Target) (string, error)
}

type Service struct {
	repo     Repository
	location *time.Location
	notifier Notifier
	metrics  *metrics.Metrics
}

func NewService(repo Repository, location *time.Location, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		location: location,
		notifier: notifier,
		metrics:  m,
	}
}

// Submit records a new comment by viewer on target. New comments always start unapproved.
func (s *Service) Submit(ctx context.Context, viewer *auth.Principal, target Target, content string) (Comment, error) {
	if !viewer.Authenticated() {
		s.metrics.CommentEvent("unauthenticated")
		return Comment{}, ErrUnauthenticated
	}
	content, err := s.cleanContent(content)
	if err != nil {
		return Comment{}, err
	}

	now := time.Now().In(s.location)
	item := Comment{
		ID:          store.NewID(),
		CaseStudyID: target.ID,
		AuthorID:    viewer.UserID,
		AuthorName:  viewer.Username,
		Content:     content,
		Approved:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return Comment{}, err
	}
	s.metrics.CommentEvent("submitted")
	return item, nil
}

// Edit replaces the content of the viewer's own comment. Any edit sends the comment back
// to moderation.
func (s *Service) Edit(ctx context.Context, viewer *auth.Principal, caseStudyID, id, content string) (Comment, error) {
	current, err := s.owned(ctx, viewer, caseStudyID, id)
	if err != nil {
		return Comment{}, err
	}
	content, err = s.cleanContent(content)
	if err != nil {
		return Comment{}, err
	}

	updated, err := s.repo.UpdateContent(ctx, current.ID, content, time.Now().In(s.location))
	if err != nil {
		return Comment{}, err
	}
	s.metrics.CommentEvent("edited")
	return updated, nil
}

// Delete permanently removes the viewer's own comment.
func (s *Service) Delete(ctx context.Context, viewer *auth.Principal, caseStudyID, id string) error {
	current, err := s.owned(ctx, viewer, caseStudyID, id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, current.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.metrics.CommentEvent("deleted")
	return nil
}

// Visible lists what viewer may see on a case study: every approved comment plus the
// viewer's own pending ones.
func (s *Service) Visible(ctx context.Context, viewer *auth.Principal, caseStudyID string) ([]Comment, error) {
	viewerID := ""
	if viewer.Authenticated() {
		viewerID = viewer.UserID
	}
	return s.repo.ListVisible(ctx, caseStudyID, viewerID)
}

// ApprovedCount is the public comment count of a case study.
func (s *Service) ApprovedCount(ctx context.Context, caseStudyID string) (int64, error) {
	counts, err := s.repo.CountApproved(ctx, []string{caseStudyID})
	if err != nil {
		return 0, err
	}
	return counts[caseStudyID], nil
}

func (s *Service) ApprovedCounts(ctx context.Context, caseStudyIDs []string) (map[string]int64, error) {
	return s.repo.CountApproved(ctx, caseStudyIDs)
}

// Approve marks the selected comments public and reports how many matched.
func (s *Service) Approve(ctx context.Context, actor *auth.Principal, ids []string) (int64, error) {
	return s.setApproved(ctx, actor, ids, true)
}

// Disapprove hides the selected comments and reports how many matched.
func (s *Service) Disapprove(ctx context.Context, actor *auth.Principal, ids []string) (int64, error) {
	return s.setApproved(ctx, actor, ids, false)
}

func (s *Service) ListForModeration(ctx context.Context, actor *auth.Principal, filter ListFilter, limit, offset int64) ([]Comment, int64, error) {
	if !actor.Can(auth.RoleModerator) {
		return nil, 0, ErrForbidden
	}
	filter.CaseStudyID = strings.TrimSpace(filter.CaseStudyID)
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

// NotifyPending emails moderators about a new comment. A missing notifier is not an error.
func (s *Service) NotifyPending(ctx context.Context, comment Comment, target Target) error {
	if s.notifier == nil {
		return nil
	}
	_, err := s.notifier.SendCommentPendingNotification(ctx, comment, target)
	return err
}

func (s *Service) setApproved(ctx context.Context, actor *auth.Principal, ids []string, approved bool) (int64, error) {
	if !actor.Can(auth.RoleModerator) {
		return 0, ErrForbidden
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.repo.SetApproved(ctx, ids, approved, time.Now().In(s.location))
	if err != nil {
		return 0, err
	}
	action := "disapprove"
	if approved {
		action = "approve"
	}
	s.metrics.Moderated(action, n)
	return n, nil
}

// owned loads comment id of caseStudyID and checks that viewer wrote it.
func (s *Service) owned(ctx context.Context, viewer *auth.Principal, caseStudyID, id string) (Comment, error) {
	current, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return Comment{}, err
	}
	if current.CaseStudyID != caseStudyID {
		return Comment{}, ErrNotFound
	}
	if !viewer.Authenticated() || current.AuthorID != viewer.UserID {
		s.metrics.CommentEvent("denied")
		return Comment{}, ErrForbidden
	}
	return current, nil
}

func (s *Service) cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > MaxContentLength {
		s.metrics.CommentEvent("invalid")
		return "", ErrInvalidContent
	}
	return content, nil
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
