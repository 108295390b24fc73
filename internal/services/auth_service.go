package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/resolvehq/resolve/internal/dtos"
	"github.com/resolvehq/resolve/internal/models"
	"github.com/resolvehq/resolve/internal/repositories"
	"github.com/resolvehq/resolve/internal/token"
	"github.com/resolvehq/resolve/internal/tokenstore"
	"github.com/resolvehq/resolve/internal/utils"
)

// AuthService orchestrates the token lifecycle: issuing pairs on
// login/registration, rotating them on refresh, and revoking them on
// logout. There is no persisted session object — session state is
// whatever the token store currently holds.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*dtos.AuthResponse, error)
	Register(ctx context.Context, name, email, password string, role models.Role) (*dtos.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dtos.AuthResponse, error)
	// Logout always succeeds from the caller's point of view; server-side
	// revocation is best-effort.
	Logout(ctx context.Context, accessToken string) error
}

type authService struct {
	userRepo repositories.UserRepository
	codec    *token.Codec
	store    tokenstore.Store

	// refreshMu serializes Refresh per user so that of two concurrent
	// attempts with the same token, exactly one wins the rotation and
	// the other observes the overwritten slot. Entries are reclaimed
	// once the last waiter releases. Cross-process races are still
	// resolved last-writer-wins by the store.
	mu        sync.Mutex
	refreshMu map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewAuthService(userRepo repositories.UserRepository, codec *token.Codec, store tokenstore.Store) AuthService {
	return &authService{
		userRepo:  userRepo,
		codec:     codec,
		store:     store,
		refreshMu: make(map[string]*userLock),
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*dtos.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		utils.Logger.WithError(err).Error("failed to look up user during login")
		return nil, err
	}
	if user == nil || !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, utils.ErrInvalidCredentials
	}

	return s.issuePair(ctx, user)
}

func (s *authService) Register(ctx context.Context, name, email, password string, role models.Role) (*dtos.AuthResponse, error) {
	if role == "" {
		role = models.RoleUser
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		utils.Logger.WithError(err).Error("failed to check for existing user during registration")
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrEmailExists
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		utils.Logger.WithError(err).Error("failed to create user during registration")
		return nil, err
	}

	return s.issuePair(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dtos.AuthResponse, error) {
	claims, err := s.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return nil, err
	}

	unlock := s.lockUser(claims.UserID)
	defer unlock()

	// Single-slot check: the presented token must exactly match the one
	// active refresh token for this user. A superseded or logged-out
	// token fails here even though its signature is still good.
	stored, err := s.store.GetRefresh(ctx, claims.UserID)
	if err != nil || stored != refreshToken {
		return nil, utils.ErrRefreshRevoked
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, utils.ErrRefreshRevoked
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		utils.Logger.WithError(err).Error("failed to look up user during token refresh")
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrRefreshRevoked
	}

	// Rotate-on-use: the overwrite below invalidates the presented token.
	return s.issuePair(ctx, user)
}

func (s *authService) Logout(ctx context.Context, accessToken string) error {
	claims, expiresAt, ok := s.codec.DecodeUnsafe(accessToken)
	if !ok {
		// Nothing to revoke server-side; the caller clears local state.
		return nil
	}

	if remaining := time.Until(expiresAt); remaining > 0 {
		if err := s.store.Blacklist(ctx, accessToken, remaining); err != nil {
			utils.Logger.WithError(err).Warn("failed to blacklist access token during logout")
		}
	}
	if err := s.store.DeleteRefresh(ctx, claims.UserID); err != nil {
		utils.Logger.WithError(err).Warn("failed to delete refresh token during logout")
	}
	return nil
}

// issuePair mints a fresh access/refresh pair and overwrites the
// user's refresh slot, superseding any previously issued refresh token.
func (s *authService) issuePair(ctx context.Context, user *models.User) (*dtos.AuthResponse, error) {
	claims := models.Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
	}

	accessToken, err := s.codec.IssueAccess(claims)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.IssueRefresh(claims)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetRefresh(ctx, claims.UserID, refreshToken, s.codec.RefreshTTL()); err != nil {
		utils.Logger.WithError(err).Warn("failed to persist refresh token")
	}

	return &dtos.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: dtos.UserResponse{
			ID:    user.ID.String(),
			Name:  user.Name,
			Email: user.Email,
			Role:  string(user.Role),
		},
	}, nil
}

func (s *authService) lockUser(userID string) func() {
	s.mu.Lock()
	l, ok := s.refreshMu[userID]
	if !ok {
		l = &userLock{}
		s.refreshMu[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.refreshMu, userID)
		}
		s.mu.Unlock()
	}
}
