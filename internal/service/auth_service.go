package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/ids"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 255
	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      domain.PublicUser
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	cost := cfg.Auth.BcryptCost
	if cost < config.MinBcryptCost {
		cost = config.MinBcryptCost
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cost,
		now:        time.Now,
	}
}

// Register creates a user account with role user and signs a token for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Email = normalizeEmail(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	if issues := validateRegistration(input); len(issues) > 0 {
		return nil, apperrors.NewValidationIssues(issues)
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, emailTaken()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, input.Username); err == nil {
		return nil, usernameTaken()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           ids.New(ids.PrefixUser),
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, emailTaken()
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, usernameTaken()
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, apperrors.NewConflict(apperrors.CodeDuplicateResource, "account already exists", "")
		}
		return nil, err
	}

	return s.issue(user)
}

// Login authenticates by email and password. Unknown email and wrong
// password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if user.Role == domain.RoleAI {
		return nil, invalidCredentials()
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, invalidCredentials()
	}
	return s.issue(user)
}

// Profile returns the public view of a user.
func (s *AuthService) Profile(ctx context.Context, userID string) (domain.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.PublicUser{}, notFoundOr(err, errUserNotFound)
	}
	return user.Public(), nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if issues := validatePassword("newPassword", newPassword); len(issues) > 0 {
		return apperrors.NewValidationIssues(issues)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, errUserNotFound)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return invalidCredentials()
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return notFoundOr(s.users.UpdatePassword(ctx, user.ID, hash, s.now().UTC()), errUserNotFound)
}

// EnsureSystemUser creates the account AI replies are attributed to when it
// does not exist yet. It cannot log in.
func (s *AuthService) EnsureSystemUser(ctx context.Context, id string) error {
	if _, err := s.users.GetByID(ctx, id); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	now := s.now().UTC()
	err := s.users.Create(ctx, &domain.User{
		ID:           id,
		Email:        id + "@system.invalid",
		Username:     id,
		PasswordHash: "!",
		Role:         domain.RoleAI,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateUsername) || errors.Is(err, repository.ErrDuplicateKey) {
		return nil
	}
	return err
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	public := user.Public()
	token, exp, err := s.tokenMgr.GenerateToken(domain.TokenPayload{
		UserID: public.ID,
		Email:  public.Email,
		Role:   public.Role,
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: public, Token: token, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(input RegisterInput) []apperrors.Issue {
	var issues []apperrors.Issue
	switch {
	case input.Email == "":
		issues = append(issues, apperrors.Issue{Path: "email", Code: apperrors.IssueRequired, Message: "email is required"})
	case !validEmail(input.Email):
		issues = append(issues, apperrors.Issue{Path: "email", Code: "invalid_string", Message: "email is not a valid address"})
	}

	n := utf8.RuneCountInString(input.Username)
	switch {
	case n == 0:
		issues = append(issues, apperrors.Issue{Path: "username", Code: apperrors.IssueRequired, Message: "username is required"})
	case n < minUsernameLen:
		issues = append(issues, apperrors.Issue{Path: "username", Code: "too_small", Message: "username must be at least 3 characters"})
	case n > maxUsernameLen:
		issues = append(issues, apperrors.Issue{Path: "username", Code: "too_big", Message: "username must be at most 255 characters"})
	}

	return append(issues, validatePassword("password", input.Password)...)
}

func validatePassword(path, password string) []apperrors.Issue {
	switch {
	case password == "":
		return []apperrors.Issue{{Path: path, Code: apperrors.IssueRequired, Message: path + " is required"}}
	case utf8.RuneCountInString(password) < minPasswordLen:
		return []apperrors.Issue{{Path: path, Code: "too_small", Message: path + " must be at least 8 characters"}}
	case len(password) > maxPasswordBytes:
		return []apperrors.Issue{{Path: path, Code: "too_big", Message: path + " must be at most 72 bytes"}}
	}
	return nil
}

func validEmail(email string) bool {
	if len(email) > 255 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@")+1:], ".")
}

func emailTaken() error {
	return apperrors.NewConflict(CodeEmailExists, "email already registered", "email")
}

func usernameTaken() error {
	return apperrors.NewConflict(CodeUsernameExists, "username already taken", "username")
}

func invalidCredentials() error {
	return apperrors.NewAuthentication(apperrors.CodeInvalidCredentials, "invalid email or password")
}
