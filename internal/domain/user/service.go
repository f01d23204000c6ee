package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/platform/auth"
)

// ErrInvalidCredentials is returned for a bad email/password combination or a
// deactivated account. Login failures are indistinguishable on purpose.
var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLength = 8

type Service struct {
	repo   Repository
	jwtCfg auth.JWTConfig
}

func NewService(repo Repository, jwtCfg auth.JWTConfig) *Service {
	return &Service{repo: repo, jwtCfg: jwtCfg}
}

// Register creates a new account. Self-registration is limited to the PATIENT
// role; accounts with other roles are created by an administrator through the
// same path.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return nil, fmt.Errorf("a valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if req.FirstName == "" || req.LastName == "" {
		return nil, fmt.Errorf("first_name and last_name are required")
	}
	if req.Role == "" {
		req.Role = auth.RolePatient
	}
	if !auth.IsValidRole(req.Role) {
		return nil, fmt.Errorf("invalid role: %s", req.Role)
	}
	if req.Role == auth.RoleDoctor && req.Specialty == nil {
		return nil, fmt.Errorf("specialty is required for doctors")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		Phone:        req.Phone,
		Specialty:    req.Specialty,
		Active:       true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and issues a signed token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.Active {
		return nil, ErrInvalidCredentials
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := auth.IssueToken(s.jwtCfg, u.ID, u.Email, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResponse{Token: token, User: u}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	if role != "" && !auth.IsValidRole(role) {
		return nil, 0, fmt.Errorf("invalid role: %s", role)
	}
	return s.repo.List(ctx, role, "", limit, offset)
}

// ListDoctors returns active doctor accounts for the booking UI, optionally
// narrowed by specialty.
func (s *Service) ListDoctors(ctx context.Context, specialty string, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, auth.RoleDoctor, specialty, limit, offset)
}

// UpdateProfile applies the non-nil fields of req to the user's profile.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		if *req.FirstName == "" {
			return nil, fmt.Errorf("first_name cannot be empty")
		}
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		if *req.LastName == "" {
			return nil, fmt.Errorf("last_name cannot be empty")
		}
		u.LastName = *req.LastName
	}
	if req.Phone != nil {
		u.Phone = req.Phone
	}
	if req.Specialty != nil {
		if u.Role != auth.RoleDoctor {
			return nil, fmt.Errorf("specialty applies to doctors only")
		}
		u.Specialty = req.Specialty
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, id)
}
