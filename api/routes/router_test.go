package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/noticecast/internal/broadcast"
	"github.com/angelmondragon/noticecast/internal/notices"
	pkgAuth "github.com/angelmondragon/noticecast/pkg/auth"
	"github.com/angelmondragon/noticecast/pkg/config"
	"github.com/angelmondragon/noticecast/pkg/db/models"
	"github.com/angelmondragon/noticecast/pkg/enums"
	"github.com/angelmondragon/noticecast/pkg/logger"
	"github.com/angelmondragon/noticecast/pkg/metrics"
	"github.com/angelmondragon/noticecast/pkg/pagination"
	"github.com/angelmondragon/noticecast/pkg/status"
)

type stubNoticesService struct {
	created int
}

func (s *stubNoticesService) Create(ctx context.Context, input notices.CreateNoticeInput) (*models.Notice, error) {
	s.created++
	return &models.Notice{ID: int64(s.created), Title: input.Title, Body: input.Body, Category: enums.NoticeCategory(input.Category)}, nil
}

func (s *stubNoticesService) Delete(ctx context.Context, id int64, actorID uuid.UUID) (notices.DeleteResult, error) {
	return notices.DeleteResult{Deleted: true}, nil
}

func (s *stubNoticesService) ListRecent(ctx context.Context, limit int) ([]models.Notice, error) {
	return []models.Notice{}, nil
}

func (s *stubNoticesService) History(ctx context.Context, params pagination.Params) (*notices.HistoryResult, error) {
	return &notices.HistoryResult{Items: []models.Notice{}}, nil
}

func (s *stubNoticesService) MarkRead(ctx context.Context, userID uuid.UUID, noticeID int64) error {
	return nil
}

func (s *stubNoticesService) UnreadPopups(ctx context.Context, userID uuid.UUID) ([]models.Notice, error) {
	return []models.Notice{}, nil
}

type stubResolver struct{}

func (stubResolver) SystemStatus(ctx context.Context, userID uuid.UUID, isOperator bool) (*notices.SystemStatus, error) {
	return &notices.SystemStatus{}, nil
}

func (stubResolver) Resolve(ctx context.Context, userID uuid.UUID, isOperator bool) (status.Resolution, error) {
	return status.Idle, nil
}

type stubRedis struct {
	data map[string]string
}

func (s *stubRedis) Get(_ context.Context, key string) (string, error) {
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *stubRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *stubRedis) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (s *stubRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *stubRedis) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return true, 1, nil
}

func (s *stubRedis) Ping(context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "noticecast-test", ExpirationMinutes: 5},
		Broadcast: config.BroadcastConfig{
			Channel:             "notices",
			SubscriberBuffer:    4,
			HeartbeatInterval:   time.Minute,
			StreamConnectLimit:  5,
			StreamConnectWindow: time.Minute,
		},
	}
}

type routerFixture struct {
	handler http.Handler
	cfg     *config.Config
	svc     *stubNoticesService
}

func newFixture(t *testing.T) routerFixture {
	t.Helper()
	cfg := testConfig()
	svc := &stubNoticesService{}
	reg := prometheus.NewRegistry()
	handler := NewRouter(cfg, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), Dependencies{
		Redis:    &stubRedis{data: map[string]string{}},
		Notices:  svc,
		Resolver: stubResolver{},
		Hub:      broadcast.NewHub(4, metrics.NewBroadcastMetrics(reg)),
		Gatherer: reg,
	})
	return routerFixture{handler: handler, cfg: cfg, svc: svc}
}

func (f routerFixture) token(t *testing.T, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(f.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return token
}

func (f routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthLiveIsPublic(t *testing.T) {
	f := newFixture(t)
	resp := f.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHealthReadyPingsRedis(t *testing.T) {
	f := newFixture(t)
	resp := f.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestMetricsExposesBroadcastGauge(t *testing.T) {
	f := newFixture(t)
	resp := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "broadcast_subscribers")
}

func TestNoticeRoutesRequireToken(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/api/v1/notices", "/api/v1/notices/system-status", "/api/v1/notices/stream"} {
		resp := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, resp.Code, path)
	}
}

func TestNoticeRoutesAcceptUserToken(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, enums.RoleUser)
	for _, path := range []string{"/api/v1/notices", "/api/v1/notices/system-status", "/api/v1/notices/popups", "/api/v1/notices/resolution"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := f.do(req)
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notices/3/read", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, f.do(req).Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/notices", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, enums.RoleUser))
	assert.Equal(t, http.StatusForbidden, f.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/notices", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, enums.RoleAdmin))
	assert.Equal(t, http.StatusOK, f.do(req).Code)
}

func TestAdminCreateRequiresIdempotencyKeyAndReplays(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, enums.RoleAdmin)
	body := `{"title":"Heads up","body":"Maintenance at noon","category":"INFO"}`

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/notices", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
	assert.Equal(t, 0, f.svc.created)

	for i := 0; i < 2; i++ {
		req = httptest.NewRequest(http.MethodPost, "/api/admin/v1/notices", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "create-1")
		resp := f.do(req)
		assert.Equal(t, http.StatusCreated, resp.Code)
	}
	assert.Equal(t, 1, f.svc.created)
}

func TestAdminDeleteRoute(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/v1/notices/4", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, enums.RoleAdmin))
	resp := f.do(req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"deleted":true`)
}

func TestQueryTokenOnlyOpensStream(t *testing.T) {
	f := newFixture(t)
	query := "?access_token=" + f.token(t, enums.RoleAdmin)

	for _, path := range []string{"/api/v1/notices", "/api/v1/notices/system-status", "/api/admin/v1/notices"} {
		resp := f.do(httptest.NewRequest(http.MethodGet, path+query, nil))
		assert.Equal(t, http.StatusUnauthorized, resp.Code, path)
	}
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/v1/notices/4"+query, nil)
	assert.Equal(t, http.StatusUnauthorized, f.do(req).Code)
}
