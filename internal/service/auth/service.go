package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/internal/repository"
	"github.com/jwalitptl/crm-api/pkg/auth"
	"github.com/jwalitptl/crm-api/pkg/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenGeneration    = errors.New("failed to generate token")
	ErrInactiveEmployee   = errors.New("employee not found or inactive")
)

const defaultActiveCacheTTL = 30 * time.Second

// Authenticator resolves a bearer token into the id of an active employee.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

type Service struct {
	employees repository.EmployeeRepository
	jwtSvc    auth.JWTService
	hasher    security.PasswordHasher
	active    *cache.Cache
}

// NewService builds the auth service. activeTTL bounds how long an employee's
// active flag is trusted before it is read again.
func NewService(employees repository.EmployeeRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher, activeTTL time.Duration) *Service {
	if activeTTL <= 0 {
		activeTTL = defaultActiveCacheTTL
	}
	return &Service{
		employees: employees,
		jwtSvc:    jwtSvc,
		hasher:    hasher,
		active:    cache.New(activeTTL, 2*activeTTL),
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	employee, err := s.employees.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}

	if !employee.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(employee.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtSvc.GenerateAccessToken(employee)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	s.active.SetDefault(cacheKey(employee.ID), true)

	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtSvc.TTL().Seconds()),
	}, nil
}

// Authenticate verifies the token signature and expiry, then checks that the
// subject is still an active employee.
func (s *Service) Authenticate(ctx context.Context, token string) (int64, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return 0, err
	}

	active, err := s.isActive(ctx, claims.UserID)
	if err != nil {
		return 0, err
	}
	if !active {
		return 0, ErrInactiveEmployee
	}
	return claims.UserID, nil
}

func (s *Service) isActive(ctx context.Context, id int64) (bool, error) {
	if v, ok := s.active.Get(cacheKey(id)); ok {
		return v.(bool), nil
	}

	employee, err := s.employees.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.active.SetDefault(cacheKey(id), false)
			return false, nil
		}
		return false, fmt.Errorf("failed to load employee: %w", err)
	}

	s.active.SetDefault(cacheKey(id), employee.IsActive)
	return employee.IsActive, nil
}

func cacheKey(id int64) string {
	return "employee:" + strconv.FormatInt(id, 10)
}

// IsAuthError reports whether err means the caller is not authenticated, as
// opposed to a failure while checking.
func IsAuthError(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, ErrInactiveEmployee) ||
		errors.Is(err, ErrInvalidCredentials)
}
