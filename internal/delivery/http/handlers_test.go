package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"crystaltides/internal/application"
	httpapi "crystaltides/internal/delivery/http"
	"crystaltides/internal/metrics"
	"crystaltides/internal/models"
	"crystaltides/internal/repository"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testKey = "secret"

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type APISuite struct {
	suite.Suite
	repos    *repository.Repository
	services *application.Service
	router   http.Handler
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	reg := prometheus.NewRegistry()
	s.repos = repository.NewMemoryRepository()
	s.services = application.NewService(application.Deps{
		Repos:   s.repos,
		Clock:   clockwork.NewFakeClock(),
		Metrics: metrics.New(reg),
		Logger:  nopLogger{},
	}, application.LinkCodeConfig{}, application.ReconcileConfig{})

	h := httpapi.NewHandler(s.services.LinkCodeService, s.services.LinkService, s.repos, nopLogger{})
	s.router = httpapi.NewRouter(h, testKey, reg)
}

func (s *APISuite) do(method, path string, body interface{}, key string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APISuite) issue(source, id, name string) string {
	w := s.do(http.MethodPost, "/api/v1/codes", map[string]string{"source": source, "source_id": id, "display_name": name}, testKey)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Code string `json:"code"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func (s *APISuite) TestAPIKeyRequired() {
	w := s.do(http.MethodPost, "/api/v1/codes", map[string]string{"source": "game", "source_id": "uuid-1"}, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/codes", map[string]string{"source": "game", "source_id": "uuid-1"}, "wrong")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APISuite) TestIssueCodeValidation() {
	w := s.do(http.MethodPost, "/api/v1/codes", map[string]string{"source": "chat", "source_id": "111"}, testKey)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/codes", map[string]string{"source": "game"}, testKey)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/codes", map[string]string{"source": "game", "source_id": "x", "extra": "y"}, testKey)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APISuite) TestRedeemChatCodeFromGame() {
	lc, err := s.services.LinkCodeService.Issue(context.Background(), models.SourceChat, "111", "steve#0")
	s.Require().NoError(err)

	w := s.do(http.MethodPost, "/api/v1/links/redeem", map[string]string{
		"code": lc.Code, "source": "game", "id": "uuid-1", "name": "Steve",
	}, testKey)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Identity models.IdentityRecord `json:"identity"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("uuid-1", resp.Identity.GameID)
	s.Equal("111", resp.Identity.ChatID)

	w = s.do(http.MethodGet, "/api/v1/identities/uuid-1", nil, testKey)
	s.Equal(http.StatusOK, w.Code)
}

func (s *APISuite) TestRedeemErrorsMapToStatus() {
	w := s.do(http.MethodPost, "/api/v1/links/redeem", map[string]string{"code": "ZZZZZZ", "source": "game", "id": "uuid-1"}, testKey)
	s.Equal(http.StatusNotFound, w.Code)
	s.Contains(w.Body.String(), "not_found")

	code := s.issue("game", "uuid-2", "Alex")
	w = s.do(http.MethodPost, "/api/v1/links/redeem", map[string]string{"code": code, "source": "game", "id": "uuid-3"}, testKey)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	lc, err := s.services.LinkCodeService.Issue(context.Background(), models.SourceChat, "222", "bob#0")
	s.Require().NoError(err)
	w = s.do(http.MethodPost, "/api/v1/links/redeem", map[string]string{"code": lc.Code, "source": "web", "id": "web-1"}, testKey)
	s.Equal(http.StatusConflict, w.Code)

	code = s.issue("game", "uuid-4", "Dana")
	w = s.do(http.MethodPost, "/api/v1/links/redeem", map[string]string{"code": code, "source": "chat", "id": "111"}, testKey)
	s.Equal(http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPost, "/api/v1/links/redeem", map[string]string{"code": code, "source": "web", "id": "   "}, testKey)
	s.Equal(http.StatusBadRequest, w.Code)

	_, err = s.services.LinkCodeService.Redeem(context.Background(), code)
	s.NoError(err)
}

func (s *APISuite) TestUnknownIdentity() {
	w := s.do(http.MethodGet, "/api/v1/identities/nobody", nil, testKey)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APISuite) TestHealthAndMetrics() {
	w := s.do(http.MethodGet, "/healthz", nil, "")
	s.Equal(http.StatusOK, w.Code)

	s.issue("web", "web-1", "alice")
	w = s.do(http.MethodGet, "/metrics", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `crystaltides_link_codes_issued_total{source="web"} 1`)
}

func TestHealthReportsStoreOutage(t *testing.T) {
	down := pingFunc(func(context.Context) error { return errors.New("db down") })
	router := httpapi.NewRouter(httpapi.NewHandler(nil, nil, down, nopLogger{}), testKey, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
