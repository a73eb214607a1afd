package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/oksasatya/go-users-crud/config"
	"github.com/oksasatya/go-users-crud/internal/container"
)

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

type userBody struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Bio       *string   `json:"bio"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type EngineSuite struct {
	suite.Suite
	cfg    *config.Config
	engine *gin.Engine
}

func TestEngineSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(EngineSuite))
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:       "users-api",
		AppVersion:    "1.2.3",
		StorageDriver: config.StorageDriverMemory,
		ESUsersIndex:  "users",
	}
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (s *EngineSuite) SetupTest() {
	s.cfg = testConfig()
	s.engine = NewEngine(container.New(s.cfg, discardLogger()))
}

func (s *EngineSuite) do(method, target, body string) (*httptest.ResponseRecorder, envelope) {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *EngineSuite) decodeUser(env envelope) userBody {
	var u userBody
	s.Require().NoError(json.Unmarshal(env.Data, &u))
	return u
}

func (s *EngineSuite) create(email, name string) userBody {
	w, env := s.do(http.MethodPost, "/users", `{"email":"`+email+`","name":"`+name+`"}`)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return s.decodeUser(env)
}

func (s *EngineSuite) TestUserLifecycle() {
	w, env := s.do(http.MethodPost, "/users", `{"email":"a@x.io","name":"Ann"}`)
	s.Require().Equal(http.StatusCreated, w.Code)
	s.True(env.Success)
	created := s.decodeUser(env)
	s.NotEmpty(created.ID)
	s.Equal("a@x.io", created.Email)
	s.Nil(created.Bio)
	s.Equal(created.CreatedAt, created.UpdatedAt)
	s.Contains(w.Body.String(), `"bio":null`)

	w, env = s.do(http.MethodGet, "/users/"+created.ID, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(created, s.decodeUser(env))

	w, env = s.do(http.MethodPatch, "/users/"+created.ID, `{"bio":"hi"}`)
	s.Require().Equal(http.StatusOK, w.Code)
	patched := s.decodeUser(env)
	s.Equal("Ann", patched.Name)
	s.Require().NotNil(patched.Bio)
	s.Equal("hi", *patched.Bio)
	s.True(patched.UpdatedAt.After(created.UpdatedAt))
	s.Equal(created.CreatedAt, patched.CreatedAt)

	w, env = s.do(http.MethodDelete, "/users/"+created.ID, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.True(env.Success)
	s.Equal("User deleted successfully", env.Message)

	w, env = s.do(http.MethodGet, "/users/"+created.ID, "")
	s.Equal(http.StatusNotFound, w.Code)
	s.False(env.Success)
	s.NotEmpty(env.Error)
}

func (s *EngineSuite) TestListEmptyAndPopulated() {
	w, env := s.do(http.MethodGet, "/users", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`[]`, string(env.Data))

	a := s.create("a@x.io", "Ann")
	b := s.create("b@x.io", "Bob")

	_, env = s.do(http.MethodGet, "/users", "")
	var list []userBody
	s.Require().NoError(json.Unmarshal(env.Data, &list))
	s.Require().Len(list, 2)
	s.ElementsMatch([]string{a.ID, b.ID}, []string{list[0].ID, list[1].ID})
}

func (s *EngineSuite) TestCreate_InvalidEmail() {
	w, env := s.do(http.MethodPost, "/users", `{"email":"not-an-email","name":"Ann"}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.False(env.Success)
	s.Equal("must be a valid email", env.Details["email"])

	_, env = s.do(http.MethodGet, "/users", "")
	s.JSONEq(`[]`, string(env.Data))
}

func (s *EngineSuite) TestCreate_MalformedJSON() {
	w, env := s.do(http.MethodPost, "/users", `{"email":`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.False(env.Success)
	s.Equal("invalid json", env.Details["payload"])

	w, env = s.do(http.MethodPost, "/users", `{"email":"a@x.io","name":7}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(env.Details, "name")
}

func (s *EngineSuite) TestCreate_Duplicate() {
	s.create("a@x.io", "Ann")

	w, env := s.do(http.MethodPost, "/users", `{"email":"a@x.io","name":"Other"}`)
	s.Equal(http.StatusConflict, w.Code)
	s.False(env.Success)
	s.Contains(env.Error, "a@x.io")
}

func (s *EngineSuite) TestUpdate_PutBehavesLikePatch() {
	u := s.create("a@x.io", "Ann")

	w, env := s.do(http.MethodPut, "/users/"+u.ID, `{"name":"Anne","email":"ignored@x.io"}`)
	s.Require().Equal(http.StatusOK, w.Code)
	got := s.decodeUser(env)
	s.Equal("Anne", got.Name)
	s.Equal("a@x.io", got.Email)
}

func (s *EngineSuite) TestUpdate_Invalid() {
	u := s.create("a@x.io", "Ann")

	w, env := s.do(http.MethodPatch, "/users/"+u.ID, `{"name":""}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(env.Details, "name")
}

func (s *EngineSuite) TestNotFoundBoundary() {
	for _, id := range []string{"00000000-0000-0000-0000-000000000000", "not-a-uuid"} {
		w, _ := s.do(http.MethodGet, "/users/"+id, "")
		s.Equal(http.StatusNotFound, w.Code, id)
		w, _ = s.do(http.MethodPatch, "/users/"+id, `{"name":"x"}`)
		s.Equal(http.StatusNotFound, w.Code, id)
		w, _ = s.do(http.MethodDelete, "/users/"+id, "")
		s.Equal(http.StatusNotFound, w.Code, id)
	}
}

func (s *EngineSuite) TestSearch() {
	w, env := s.do(http.MethodGet, "/users/search?q=ann", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`[]`, string(env.Data))

	w, env = s.do(http.MethodGet, "/users/search", "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("is required", env.Details["q"])
}

func (s *EngineSuite) TestRootAndHealth() {
	w, env := s.do(http.MethodGet, "/", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var root map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &root))
	s.Equal("users-api", root["name"])
	s.Equal("1.2.3", root["version"])
	s.Contains(root, "timestamp")

	w, env = s.do(http.MethodGet, "/health", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var health map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &health))
	s.Equal("ok", health["status"])
}

func (s *EngineSuite) TestUnknownRoute() {
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		w, env := s.do(m, "/nope", "")
		s.Equal(http.StatusNotFound, w.Code)
		s.False(env.Success)
		s.Equal("Route not found", env.Error)
	}
	w, _ := s.do(http.MethodPost, "/health", "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *EngineSuite) TestInternalErrorsAreGeneric() {
	s.engine.GET("/boom", func(*gin.Context) { panic("kaboom") })
	s.engine.GET("/fail", func(c *gin.Context) { _ = c.Error(errors.New("db error: secret detail")) })

	for _, path := range []string{"/boom", "/fail"} {
		w, env := s.do(http.MethodGet, path, "")
		s.Equal(http.StatusInternalServerError, w.Code, path)
		s.Equal("Internal server error", env.Error)
		s.NotContains(w.Body.String(), "secret")
		s.NotContains(w.Body.String(), "kaboom")
	}
}

func (s *EngineSuite) TestPrettyQuery() {
	w, _ := s.do(http.MethodGet, "/health?pretty", "")
	s.Contains(w.Body.String(), "\n    \"success\": true")

	w, _ = s.do(http.MethodGet, "/health", "")
	s.NotContains(w.Body.String(), "\n")
}

func (s *EngineSuite) TestRequestIDHeader() {
	w, _ := s.do(http.MethodGet, "/health", "")
	s.NotEmpty(w.Header().Get("X-Request-ID"))
}

func (s *EngineSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/users", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEngine_PrettyByConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.PrettyJSON = true
	r := NewEngine(container.New(cfg, discardLogger()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, bytes.Contains(w.Body.Bytes(), []byte("\n")))
}

func TestEngine_RateLimitsUsers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	c := container.New(cfg, discardLogger())
	c.Redis = rdb
	r := NewEngine(c)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// health is outside the limited group
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestEngine_SecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewEngine(container.New(testConfig(), discardLogger()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestEngine_RateLimitsWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.RateLimitPerMinute = 1
	r := NewEngine(container.New(cfg, discardLogger()))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestEngine_RateLimitKeyedByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.RateLimitPerMinute = 1
	cfg.RateLimitKey = config.RateLimitKeyRoute
	r := NewEngine(container.New(cfg, discardLogger()))

	get := func(target string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, get("/users"))
	assert.Equal(t, http.StatusOK, get("/users/search?q=a"))
	assert.Equal(t, http.StatusTooManyRequests, get("/users"))

	ip := testConfig()
	ip.RateLimitPerMinute = 1
	byIP := NewEngine(container.New(ip, discardLogger()))
	w := httptest.NewRecorder()
	byIP.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusOK, w.Code)
	w = httptest.NewRecorder()
	byIP.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/search?q=a", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
