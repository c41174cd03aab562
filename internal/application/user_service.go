package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-scaffold/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/mailer"
	tpl "github.com/oksasatya/go-ddd-auth-scaffold/pkg/mailer/templates"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnavailable        = errors.New("not configured")
)

const (
	confirmTokenTTL = 24 * time.Hour
	resetTokenTTL   = 30 * time.Minute
)

// Links are the front-end URLs and branding embedded in account emails.
type Links struct {
	Brand            tpl.Brand
	ConfirmEmailURL  string
	ResetPasswordURL string
}

// Service implements the account flows on top of the identity managers.
type Service struct {
	Users        *UserManager
	Roles        *RoleManager
	JWT          *helpers.JWTManager
	Redis        *redis.Client
	Logger       *logrus.Logger
	Mail         mailer.Sender
	Links        Links
	SessionTTL   time.Duration
	GCS          *storage.Client
	GCSBucket    string
	ES           *elasticsearch.Client
	ESUsersIndex string
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// RequestMeta describes the client that triggered an email.
type RequestMeta struct {
	IP        string
	UserAgent string
}

func SessionKey(userID string) string {
	return "user:session:" + userID
}

func keyConfirmToken(t string) string { return "email:confirm:token:" + t }
func keyResetToken(t string) string   { return "pwd:reset:token:" + t }

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func NewService(users *UserManager, roles *RoleManager, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger, mail mailer.Sender) *Service {
	if mail == nil {
		mail = mailer.NoOpSender{Logger: logger}
	}
	return &Service{
		Users:      users,
		Roles:      roles,
		JWT:        jwt,
		Redis:      rdb,
		Logger:     logger,
		Mail:       mail,
		SessionTTL: 24 * time.Hour,
	}
}

type LoginResponse struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates an unconfirmed account whose user name is its email and sends a confirmation link.
func (s *Service) Register(ctx context.Context, in RegisterInput, meta RequestMeta) (*entity.User, error) {
	u := &entity.User{
		UserName: strings.TrimSpace(in.Email),
		Email:    strings.TrimSpace(in.Email),
		Name:     strings.TrimSpace(in.Name),
	}
	if err := s.Users.CreateUser(ctx, u, in.Password); err != nil {
		return nil, err
	}
	s.logInfo("user registered", logrus.Fields{"user_id": u.ID, "email": u.Email})

	if err := s.SendEmailConfirmation(ctx, u, meta); err != nil {
		s.logWarn("confirmation email not sent", err, logrus.Fields{"user_id": u.ID})
	}
	_ = s.indexUser(ctx, u)
	return u, nil
}

// Authenticate validates email/password and returns the user without issuing tokens.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !s.Users.CheckPassword(u, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
// The session carries the user's roles for authorization checks.
func (s *Service) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, []string, error) {
	roles, err := s.Users.GetRoles(ctx, u)
	if err != nil {
		return TokenPair{}, nil, err
	}
	sid := uuid.NewString()
	pair, err := s.tokenPair(u.ID, sid)
	if err != nil {
		s.logWarn("generate tokens failed", err, logrus.Fields{"user_id": u.ID})
		return TokenPair{}, nil, err
	}

	if s.Redis != nil {
		fields := map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"name":       u.Name,
			"avatar_url": u.AvatarURL,
			"roles":      strings.Join(roles, ","),
			"sid":        sid,
			"logged_in":  true,
			"created_at": nowRFC3339(),
		}
		key := SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, s.SessionTTL)
		if _, rErr := pipe.Exec(ctx); rErr != nil {
			s.logWarn("redis pipeline failed", rErr, logrus.Fields{"key": key})
		}
	}
	return pair, roles, nil
}

func (s *Service) tokenPair(userID, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, roles, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return &LoginResponse{UserID: u.ID, Email: u.Email, Name: u.Name, Roles: roles}, pair, nil
}

// Refresh rotates the session id and both tokens when the refresh token matches the live session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	u, err := s.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, "", ErrInvalidCredentials
	}
	if s.Redis != nil {
		data, rErr := s.Redis.HGetAll(ctx, SessionKey(u.ID)).Result()
		if rErr != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return TokenPair{}, "", ErrInvalidCredentials
		}
	}
	sid := uuid.NewString()
	pair, err := s.tokenPair(u.ID, sid)
	if err != nil {
		return TokenPair{}, "", err
	}
	if s.Redis != nil {
		key := SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"sid":        sid,
			"updated_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, s.SessionTTL)
		_, _ = pipe.Exec(ctx)
	}
	return pair, u.ID, nil
}

// Logout removes the server-side session so outstanding tokens stop working.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if s.Redis == nil || userID == "" {
		return nil
	}
	return s.Redis.Del(ctx, SessionKey(userID)).Err()
}

// RefreshSessionRoles rewrites the roles cached in a live session after membership changes.
func (s *Service) RefreshSessionRoles(ctx context.Context, u *entity.User) {
	if s.Redis == nil {
		return
	}
	key := SessionKey(u.ID)
	if n, err := s.Redis.Exists(ctx, key).Result(); err != nil || n == 0 {
		return
	}
	roles, err := s.Users.GetRoles(ctx, u)
	if err != nil {
		s.logWarn("reload roles failed", err, logrus.Fields{"user_id": u.ID})
		return
	}
	if err := s.Redis.HSet(ctx, key, "roles", strings.Join(roles, ","), "updated_at", nowRFC3339()).Err(); err != nil {
		s.logWarn("session roles update failed", err, logrus.Fields{"key": key})
	}
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*entity.User, []string, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	roles, err := s.Users.GetRoles(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, roles, nil
}

type UpdateProfileInput struct {
	Name      string
	AvatarURL string
}

// UpdateProfile with ctx, RFC3339 timestamps, and TTL preservation
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		u.Name = in.Name
	}
	if in.AvatarURL != "" {
		u.AvatarURL = in.AvatarURL
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.touchSession(ctx, u)
	_ = s.indexUser(ctx, u)
	return u, nil
}

func (s *Service) touchSession(ctx context.Context, u *entity.User) {
	if s.Redis == nil {
		return
	}
	key := SessionKey(u.ID)
	pipe := s.Redis.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"name":       u.Name,
		"avatar_url": u.AvatarURL,
		"updated_at": nowRFC3339(),
	})
	if ttl, tErr := s.Redis.TTL(ctx, key).Result(); tErr == nil && ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, pErr := pipe.Exec(ctx); pErr != nil {
		s.logWarn("redis pipeline failed", pErr, logrus.Fields{"key": key})
	}
}

// UploadAvatar stores the image in GCS and points the profile at it.
func (s *Service) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return "", ErrUnavailable
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", err
	}
	u.AvatarURL = url
	if err := s.Users.Update(ctx, u); err != nil {
		return "", err
	}
	s.touchSession(ctx, u)
	_ = s.indexUser(ctx, u)
	return url, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.Users.ChangePassword(ctx, u, current, next)
}

// SendEmailConfirmation issues a one-time confirmation token and emails the link.
func (s *Service) SendEmailConfirmation(ctx context.Context, u *entity.User, meta RequestMeta) error {
	if s.Redis == nil {
		return ErrUnavailable
	}
	tok, err := helpers.NewURLToken(32)
	if err != nil {
		return err
	}
	if err := s.Redis.Set(ctx, keyConfirmToken(tok), u.ID, confirmTokenTTL).Err(); err != nil {
		return err
	}
	link := s.Links.ConfirmEmailURL + "?token=" + tok
	data := tpl.NewConfirmEmailData(s.Links.Brand, u.Name, u.Email, link,
		tpl.WithTime(time.Now()),
		tpl.WithExpiresIn(confirmTokenTTL),
		tpl.WithIP(meta.IP),
		tpl.WithUserAgent(meta.UserAgent),
	)
	return s.Mail.Send(ctx, mailer.EmailJob{To: u.Email, Template: tpl.ConfirmEmail, Data: data})
}

// ResendEmailConfirmation is silent about unknown or already confirmed addresses.
func (s *Service) ResendEmailConfirmation(ctx context.Context, email string, meta RequestMeta) error {
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil || u.EmailConfirmed {
		return nil
	}
	return s.SendEmailConfirmation(ctx, u, meta)
}

func (s *Service) ConfirmEmail(ctx context.Context, token string) (*entity.User, error) {
	if s.Redis == nil {
		return nil, ErrUnavailable
	}
	// GETDEL so a token is consumed exactly once under concurrent requests.
	uid, err := s.Redis.GetDel(ctx, keyConfirmToken(token)).Result()
	if err != nil || uid == "" {
		return nil, ErrInvalidToken
	}
	u, err := s.Users.FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := s.Users.ConfirmEmail(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ForgotPassword emails a reset link when the address is known; unknown addresses are not reported.
func (s *Service) ForgotPassword(ctx context.Context, email string, meta RequestMeta) error {
	if s.Redis == nil {
		return ErrUnavailable
	}
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		s.logInfo("password reset requested for unknown email", logrus.Fields{"email": email})
		return nil
	}
	tok, err := helpers.NewURLToken(32)
	if err != nil {
		return err
	}
	if err := s.Redis.Set(ctx, keyResetToken(tok), u.ID, resetTokenTTL).Err(); err != nil {
		return err
	}
	link := s.Links.ResetPasswordURL + "?token=" + tok
	data := tpl.NewResetPasswordData(s.Links.Brand, u.Name, u.Email, link,
		tpl.WithTime(time.Now()),
		tpl.WithExpiresIn(resetTokenTTL),
		tpl.WithIP(meta.IP),
		tpl.WithUserAgent(meta.UserAgent),
	)
	return s.Mail.Send(ctx, mailer.EmailJob{To: u.Email, Template: tpl.ResetPassword, Data: data})
}

// ResetPassword consumes a reset token and ends any live session of the user.
// The token is spent even when the new password is rejected.
func (s *Service) ResetPassword(ctx context.Context, token, next string) error {
	if s.Redis == nil {
		return ErrUnavailable
	}
	uid, err := s.Redis.GetDel(ctx, keyResetToken(token)).Result()
	if err != nil || uid == "" {
		return ErrInvalidToken
	}
	u, err := s.Users.FindByID(ctx, uid)
	if err != nil {
		return err
	}
	if err := s.Users.ResetPassword(ctx, u, next); err != nil {
		return err
	}
	s.Redis.Del(ctx, SessionKey(u.ID))
	return nil
}

// UserSummary is the admin listing view of a user.
type UserSummary struct {
	ID             string    `json:"id"`
	UserName       string    `json:"user_name"`
	Email          string    `json:"email"`
	EmailConfirmed bool      `json:"email_confirmed"`
	Name           string    `json:"name"`
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]UserSummary, error) {
	users, err := s.Users.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(users))
	for i := range users {
		u := &users[i]
		roles, err := s.Users.GetRoles(ctx, u)
		if err != nil {
			return nil, err
		}
		out = append(out, UserSummary{
			ID:             u.ID,
			UserName:       u.UserName,
			Email:          u.Email,
			EmailConfirmed: u.EmailConfirmed,
			Name:           u.Name,
			Roles:          roles,
			CreatedAt:      u.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]entity.Role, error) {
	return s.Roles.List(ctx)
}

func (s *Service) AssignRole(ctx context.Context, userID, role string) error {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Users.AddToRole(ctx, u, role); err != nil {
		return err
	}
	s.RefreshSessionRoles(ctx, u)
	return nil
}

func (s *Service) UnassignRole(ctx context.Context, userID, role string) error {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Users.RemoveFromRole(ctx, u, role); err != nil {
		return err
	}
	s.RefreshSessionRoles(ctx, u)
	return nil
}

// IndexUserByEmail writes the user's search document. Accounts created outside
// the HTTP flows, such as the seeded admin, become searchable through it.
// It is a no-op when search is not configured or the email is unknown.
func (s *Service) IndexUserByEmail(ctx context.Context, email string) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil || u == nil {
		return err
	}
	return s.indexUser(ctx, u)
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":              u.ID,
		"user_name":       u.UserName,
		"email":           u.Email,
		"email_confirmed": u.EmailConfirmed,
		"name":            u.Name,
		"avatar_url":      u.AvatarURL,
		"created_at":      u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":      u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		s.logWarn("es index failed", err, logrus.Fields{"user_id": u.ID})
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
	return nil
}

// SearchUsers performs a simple multi_match search on email, user name and name.
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
				"fields": []string{"email^2", "user_name", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.IsError() {
		return nil, errors.New("search failed: " + res.Status())
	}

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

func (s *Service) logInfo(msg string, fields logrus.Fields) {
	if s.Logger != nil {
		s.Logger.WithFields(fields).Info(msg)
	}
}

func (s *Service) logWarn(msg string, err error, fields logrus.Fields) {
	if s.Logger != nil {
		s.Logger.WithError(err).WithFields(fields).Warn(msg)
	}
}
