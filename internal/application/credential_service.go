package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/shoplytics/shoplytics/internal/apperrors"
	"github.com/shoplytics/shoplytics/internal/domain/entity"
	repo "github.com/shoplytics/shoplytics/internal/domain/repository"
	"github.com/shoplytics/shoplytics/internal/validation"
	"github.com/shoplytics/shoplytics/pkg/helpers"
	"github.com/shoplytics/shoplytics/pkg/mailer"
)

var (
	// ErrInvalidCredentials is returned for both unknown usernames and wrong
	// passwords so login responses never reveal which one failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidResetToken covers unknown, used and expired reset tokens.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// EmailPublisher enqueues an email job for the worker. RabbitPublisher
// satisfies it; tests plug in a recording fake.
type EmailPublisher interface {
	PublishJSON(ctx context.Context, v any) error
}

// Service implements registration, login and password recovery on top of a
// UserRepository. Redis and Elasticsearch are optional collaborators; nil
// disables sessions and user search respectively.
type Service struct {
	Repo         repo.UserRepository
	JWT          *helpers.JWTManager
	Tokens       TokenStore
	Mail         EmailPublisher
	Redis        *redis.Client
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string

	BcryptCost       int
	ResetPasswordURL string
	ResetTokenTTL    time.Duration
	MailSendEnabled  bool
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

type LoginResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func sessionKey(username string) string {
	return "user:session:" + username
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Register validates the input in a fixed order (email, username, password,
// confirmation) and creates the account. Uniqueness violations come back from
// the repository as field-tagged validation errors.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.UserRecord, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)

	if !validation.ValidateEmail(email) {
		return nil, apperrors.NewValidationErrorMsg("email", email, "Invalid email format.")
	}
	if !validation.ValidateUsername(username) {
		return nil, apperrors.NewValidationErrorMsg("username", username,
			"Username must be 3-18 characters, start and end with a letter or digit, and may contain . _ - in between.")
	}
	if !validation.ValidatePassword(in.Password, validation.RuleAll) {
		return nil, passwordValidationError(in.Password)
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperrors.NewValidationErrorMsg("confirm_password", "", "Passwords do not match.")
	}

	hash, err := helpers.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return nil, apperrors.NewDatabaseError("Failed to hash the password.", err)
	}

	u := &entity.UserRecord{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Repo.Create(u); err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.WithField("username", u.Username).Info("user registered")
	}
	_ = s.indexUser(ctx, u)
	return u, nil
}

func passwordValidationError(password string) *apperrors.Error {
	failures := validation.PasswordFailures(password)
	msg := "Password does not meet the requirements."
	if len(failures) > 0 {
		msg = "Password must contain " + strings.Join(failures, ", ") + "."
	}
	// Never echo the password back.
	return apperrors.NewValidationErrorMsg("password", "", msg)
}

// Authenticate checks username/password. Both lookup misses and hash
// mismatches return ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entity.UserRecord, error) {
	u, err := s.Repo.GetByUsername(strings.TrimSpace(username))
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueTokens generates the access/refresh pair and records a session in
// Redis when configured.
func (s *Service) IssueTokens(ctx context.Context, u *entity.UserRecord) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(u.Username)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("username", u.Username).Error("generate access token failed")
		}
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.Username)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("username", u.Username).Error("generate refresh token failed")
		}
		return TokenPair{}, err
	}

	if s.Redis != nil {
		key := sessionKey(u.Username)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"username":   u.Username,
			"email":      u.Email,
			"logged_in":  true,
			"created_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, 24*time.Hour)
		if _, rErr := pipe.Exec(ctx); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResponse, TokenPair, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return &LoginResponse{Username: u.Username, Email: u.Email}, pair, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	u, err := s.Repo.GetByUsername(claims.Username)
	if err != nil || u == nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return TokenPair{}, "", err
	}
	return pair, u.Username, nil
}

func (s *Service) Logout(ctx context.Context, username string) {
	if s.Redis != nil {
		_ = s.Redis.Del(ctx, sessionKey(username)).Err()
	}
}

func (s *Service) GetProfile(username string) (*entity.UserRecord, error) {
	return s.Repo.GetByUsername(username)
}

// RequestPasswordReset looks up the account by email, stores a one-time token
// and enqueues the recovery email. An unknown email is reported to the caller
// as a user-not-found error; the recovery flow deliberately confirms whether
// an address is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !validation.ValidateEmail(email) {
		return apperrors.NewValidationErrorMsg("email", email, "Invalid email format.")
	}
	u, err := s.Repo.GetByEmail(email)
	if err != nil {
		return err
	}

	token, err := helpers.GenToken(32)
	if err != nil {
		return err
	}
	if err := s.Tokens.Save(ctx, token, u.Username, s.ResetTokenTTL); err != nil {
		return apperrors.NewDatabaseError("Failed to store the reset token.", err)
	}

	if !s.MailSendEnabled || s.Mail == nil {
		if s.Logger != nil {
			s.Logger.WithField("username", u.Username).Info("mail sending disabled, skipping reset email")
		}
		return nil
	}

	job := &mailer.EmailJob{
		To:       u.Email,
		Template: mailer.PasswordResetTemplate,
		Data: map[string]any{
			"Username":  u.Username,
			"ResetURL":  fmt.Sprintf("%s?token=%s", s.ResetPasswordURL, token),
			"ExpiresIn": s.ResetTokenTTL.String(),
		},
	}
	if err := s.Mail.PublishJSON(ctx, job); err != nil {
		_ = s.Tokens.Delete(ctx, token)
		return apperrors.NewEmailSendingError(u.Email, err)
	}
	if s.Logger != nil {
		s.Logger.WithField("username", u.Username).Info("password reset email queued")
	}
	return nil
}

// ConfirmPasswordReset validates the new password, consumes the token and
// updates the stored hash. The token is deleted on success only, so a failed
// update can be retried within the TTL.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if !validation.ValidatePassword(newPassword, validation.RuleAll) {
		return passwordValidationError(newPassword)
	}
	username, err := s.Tokens.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	hash, err := helpers.HashPassword(newPassword, s.BcryptCost)
	if err != nil {
		return apperrors.NewDatabaseError("Failed to hash the password.", err)
	}
	if err := s.Repo.UpdatePassword(username, hash); err != nil {
		return err
	}
	_ = s.Tokens.Delete(ctx, token)
	// Force a fresh login after a reset.
	s.Logout(ctx, username)
	if s.Logger != nil {
		s.Logger.WithField("username", username).Info("password reset completed")
	}
	return nil
}

func (s *Service) indexUser(ctx context.Context, u *entity.UserRecord) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"username":   u.Username,
		"email":      u.Email,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.Username, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("username", u.Username).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("username", u.Username).Warn("es index response error")
	}
	return nil
}

// SearchUsers performs a multi_match query on username and email.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "email"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESUsersIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
