package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplytics/shoplytics/internal/application"
	handlers "github.com/shoplytics/shoplytics/internal/interface/http"
	"github.com/shoplytics/shoplytics/internal/infrastructure/userfile"
	"github.com/shoplytics/shoplytics/internal/router"
	"github.com/shoplytics/shoplytics/internal/router/modules"
	"github.com/shoplytics/shoplytics/pkg/helpers"
	"github.com/shoplytics/shoplytics/pkg/mailer"
	"github.com/shoplytics/shoplytics/pkg/validation"
)

type capturePublisher struct {
	jobs []*mailer.EmailJob
}

func (p *capturePublisher) PublishJSON(_ context.Context, v any) error {
	if job, ok := v.(*mailer.EmailJob); ok {
		p.jobs = append(p.jobs, job)
	}
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *capturePublisher) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	store, err := userfile.NewStore(filepath.Join(t.TempDir(), "users_db.json"))
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	pub := &capturePublisher{}
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	svc := &application.Service{
		Repo:             store,
		JWT:              jwt,
		Tokens:           application.NewMemoryTokenStore(),
		Mail:             pub,
		Logger:           logger,
		BcryptCost:       4,
		ResetPasswordURL: "http://localhost:8080/reset-password",
		ResetTokenTTL:    30 * time.Minute,
		MailSendEnabled:  true,
	}

	engine := gin.New()
	reg := router.NewRegistry(engine)
	reg.Add(modules.NewAuthModule(handlers.NewAuthHandler(svc, logger), nil))
	reg.Add(modules.NewUserModule(handlers.NewUserHandler(svc, jwt, logger, "localhost", false), jwt, nil))
	reg.RegisterAll()
	return engine, pub
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/api/auth/register", gin.H{
		"username":         "dave_97",
		"email":            "dave@example.com",
		"password":         "Abc12345!",
		"confirm_password": "Abc12345!",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodPost, "/api/login", gin.H{
		"username": "dave_97",
		"password": "Abc12345!",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cookies := w.Result().Cookies()
	var names []string
	for _, c := range cookies {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "access_token")
	assert.Contains(t, names, "refresh_token")

	w = doJSON(t, engine, http.MethodGet, "/api/profile", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "dave_97", env.Data["username"])
	assert.Equal(t, "dave@example.com", env.Data["email"])
}

func TestLoginErrorStaysGeneric(t *testing.T) {
	engine, _ := newTestRouter(t)

	doJSON(t, engine, http.MethodPost, "/api/auth/register", gin.H{
		"username":         "dave_97",
		"email":            "dave@example.com",
		"password":         "Abc12345!",
		"confirm_password": "Abc12345!",
	}, nil)

	wrongPwd := doJSON(t, engine, http.MethodPost, "/api/login", gin.H{
		"username": "dave_97",
		"password": "Wrong1234!",
	}, nil)
	noUser := doJSON(t, engine, http.MethodPost, "/api/login", gin.H{
		"username": "nobody_1",
		"password": "Wrong1234!",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongPwd.Code)
	assert.Equal(t, http.StatusUnauthorized, noUser.Code)

	var ea, eb map[string]any
	require.NoError(t, json.Unmarshal(wrongPwd.Body.Bytes(), &ea))
	require.NoError(t, json.Unmarshal(noUser.Body.Bytes(), &eb))
	assert.Equal(t, ea["message"], eb["message"])
	assert.Equal(t, ea["error"], eb["error"])
}

func TestRegisterRejectsBadPayload(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/api/auth/register", gin.H{
		"username":         "dave_97",
		"email":            "not-an-email",
		"password":         "Abc12345!",
		"confirm_password": "Abc12345!",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var env struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Contains(t, env.Error, "email")
}

func TestProfileRequiresToken(t *testing.T) {
	engine, _ := newTestRouter(t)
	w := doJSON(t, engine, http.MethodGet, "/api/profile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPasswordRecoveryOverHTTP(t *testing.T) {
	engine, pub := newTestRouter(t)

	doJSON(t, engine, http.MethodPost, "/api/auth/register", gin.H{
		"username":         "dave_97",
		"email":            "dave@example.com",
		"password":         "Abc12345!",
		"confirm_password": "Abc12345!",
	}, nil)

	w := doJSON(t, engine, http.MethodPost, "/api/auth/reset/init", gin.H{
		"email": "dave@example.com",
	}, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Len(t, pub.jobs, 1)

	resetURL, _ := pub.jobs[0].Data["ResetURL"].(string)
	parsed, err := url.Parse(resetURL)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)

	w = doJSON(t, engine, http.MethodPost, "/api/auth/reset/confirm", gin.H{
		"token":        token,
		"new_password": "Xyz98765!",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodPost, "/api/login", gin.H{
		"username": "dave_97",
		"password": "Xyz98765!",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodPost, "/api/login", gin.H{
		"username": "dave_97",
		"password": "Abc12345!",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResetInitReportsUnknownEmail(t *testing.T) {
	engine, pub := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/api/auth/reset/init", gin.H{
		"email": "ghost@example.com",
	}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, pub.jobs)
}
