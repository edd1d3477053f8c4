package accounts

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/store"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
	ErrForbidden          = errors.New("not allowed")
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9@.+_-]{4,150}$`)

type Service struct {
	repo     Repository
	location *time.Location
}

func NewService(repo Repository, location *time.Location) *Service {
	return &Service{
		repo:     repo,
		location: location,
	}
}

// Register creates a regular user account.
func (s *Service) Register(ctx context.Context, username, email, password string) (User, error) {
	return s.create(ctx, username, email, password, auth.RoleUser)
}

// Authenticate checks a username and password pair. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := s.repo.GetByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Ensure creates username with role, or resets the password and role of an existing account.
func (s *Service) Ensure(ctx context.Context, username, email, password, role string) (User, error) {
	if !auth.IsValidRole(role) {
		return User{}, ErrInvalidRole
	}
	existing, err := s.repo.GetByUsername(ctx, NormalizeUsername(username))
	if errors.Is(err, ErrNotFound) {
		return s.create(ctx, username, email, password, role)
	}
	if err != nil {
		return User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	now := time.Now().In(s.location)
	if err := s.repo.SetPassword(ctx, existing.ID, hash, now); err != nil {
		return User{}, err
	}
	return s.repo.SetRole(ctx, existing.ID, role, now)
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

// PrincipalFor returns the current identity and role of user id.
func (s *Service) PrincipalFor(ctx context.Context, id string) (*auth.Principal, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Principal(), nil
}

func (s *Service) List(ctx context.Context, limit, offset int64) ([]User, int64, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetRole changes a user's role. Admins cannot demote themselves.
func (s *Service) SetRole(ctx context.Context, actor *auth.Principal, id, role string) (User, error) {
	if !actor.Can(auth.RoleAdmin) {
		return User{}, ErrForbidden
	}
	if !auth.IsValidRole(role) {
		return User{}, ErrInvalidRole
	}
	id = strings.TrimSpace(id)
	if actor.UserID == id && role != auth.RoleAdmin {
		return User{}, ErrForbidden
	}
	return s.repo.SetRole(ctx, id, role, time.Now().In(s.location))
}

// Delete removes a user and every comment they wrote.
func (s *Service) Delete(ctx context.Context, actor *auth.Principal, id string) error {
	if !actor.Can(auth.RoleAdmin) {
		return ErrForbidden
	}
	id = strings.TrimSpace(id)
	if actor.UserID == id {
		return ErrForbidden
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *Service) create(ctx context.Context, username, email, password, role string) (User, error) {
	username = NormalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return User{}, ErrInvalidUsername
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return User{}, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}

	now := time.Now().In(s.location)
	user := User{
		ID:           store.NewID(),
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
