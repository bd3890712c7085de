package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/domain/entity"
	repo "github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/pkg/helpers"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOrganizerInactive  = errors.New("organizer is not active")
	ErrOrganizerNotFound  = errors.New("organizer not found")
)

type TokenPair struct {
	AccessToken        string    `json:"access_token"`
	AccessTokenExpiry  time.Time `json:"access_token_expiry"`
	RefreshToken       string    `json:"refresh_token"`
	RefreshTokenExpiry time.Time `json:"refresh_token_expiry"`
}

// AuthService signs organizers in and keeps one Redis session per organizer.
type AuthService struct {
	Organizers repo.OrganizerRepository
	JWT        *helpers.JWTManager
	Redis      *redis.Client
	Logger     *logrus.Logger
	SessionTTL time.Duration
}

func NewAuthService(organizers repo.OrganizerRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger) *AuthService {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	ttl := 24 * time.Hour
	if jwt != nil && jwt.RefreshTTL > 0 {
		ttl = jwt.RefreshTTL
	}
	return &AuthService{Organizers: organizers, JWT: jwt, Redis: rdb, Logger: logger, SessionTTL: ttl}
}

func SessionKey(organizerID string) string {
	return "organizer:session:" + organizerID
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.Organizer, TokenPair, error) {
	o, err := s.Organizers.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repo.ErrNotFound) || (err == nil && o == nil) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return nil, TokenPair{}, err
	}
	if !helpers.CompareHashAndPassword(o.PasswordHash, password) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if o.Status != entity.OrganizerActive {
		return nil, TokenPair{}, ErrOrganizerInactive
	}
	pair, err := s.issue(ctx, o, uuid.NewString())
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.Logger.WithFields(logrus.Fields{"organizer_id": o.ID, "role": o.Role}).Info("organizer logged in")
	return o, pair, nil
}

// Refresh rotates the session id; the presented refresh token must belong to the current session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	o, err := s.Organizers.GetByID(ctx, claims.UserID)
	if err != nil || o == nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if o.Status != entity.OrganizerActive {
		return TokenPair{}, ErrOrganizerInactive
	}
	if !s.SessionValid(ctx, o.ID, claims.SessionID) {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.issue(ctx, o, uuid.NewString())
}

func (s *AuthService) Logout(ctx context.Context, organizerID string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(ctx, SessionKey(organizerID)).Err()
}

func (s *AuthService) Profile(ctx context.Context, organizerID string) (*entity.Organizer, error) {
	o, err := s.Organizers.GetByID(ctx, organizerID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && o == nil) {
		return nil, ErrOrganizerNotFound
	}
	return o, err
}

// SessionValid reports whether sid is the organizer's current session.
// Without Redis every signed token is accepted.
func (s *AuthService) SessionValid(ctx context.Context, organizerID, sid string) bool {
	if s.Redis == nil {
		return true
	}
	cur, err := s.Redis.HGet(ctx, SessionKey(organizerID), "sid").Result()
	return err == nil && cur != "" && cur == sid
}

func (s *AuthService) issue(ctx context.Context, o *entity.Organizer, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(o.ID, o.Role, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("organizer_id", o.ID).Error("generate access token failed")
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(o.ID, o.Role, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("organizer_id", o.ID).Error("generate refresh token failed")
		return TokenPair{}, err
	}
	if s.Redis != nil {
		key := SessionKey(o.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"organizer_id": o.ID,
			"email":        o.Email,
			"name":         o.Name,
			"role":         o.Role,
			"sid":          sid,
			"updated_at":   nowRFC3339(),
		})
		pipe.Expire(ctx, key, s.SessionTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			s.Logger.WithError(err).WithField("key", key).Warn("redis pipeline failed")
			return TokenPair{}, err
		}
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}
