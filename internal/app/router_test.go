package app

import (
	"context"
	"course_hub_backend/internal/config"
	"course_hub_backend/internal/controller"
	"course_hub_backend/internal/model"
	"course_hub_backend/internal/util"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubUsers map[uint]*model.User

func (s stubUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, util.ErrUserNotFound
}

type stubCourses struct {
	controller.CourseUseCases
}

func (stubCourses) ListPublicCourses(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

func (stubCourses) GetCourseContent(ctx context.Context, actor *model.Actor, id string) ([]model.ContentItem, error) {
	return []model.ContentItem{}, nil
}

func (stubCourses) ListCoursesAdmin(ctx context.Context) ([]model.CourseSummary, error) {
	return []model.CourseSummary{}, nil
}

func newTestEngine(t *testing.T) (*gin.Engine, map[model.UserRole]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := stubUsers{}
	tokens := map[model.UserRole]string{}
	for i, role := range []model.UserRole{model.Student, model.Admin} {
		u := &model.User{Name: string(role), Role: role}
		u.ID = uint(i + 1)
		users[u.ID] = u
		token, err := util.GenerateJWT(u, testSecret, time.Hour)
		require.NoError(t, err)
		tokens[role] = token
	}

	c := &controllers{
		course: controller.NewCourseController(stubCourses{}),
		health: controller.NewHealthController(map[string]controller.HealthCheck{
			"database": func(ctx context.Context) error { return nil },
		}),
	}
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	router := gin.New()
	(&App{Config: cfg}).registerRoutes(router, c, users, cfg)
	return router, tokens
}

func TestRouteAccess(t *testing.T) {
	router, tokens := newTestEngine(t)

	tests := []struct {
		name   string
		method string
		path   string
		role   model.UserRole
		code   int
	}{
		{"health is public", http.MethodGet, "/api/health", "", http.StatusOK},
		{"catalog is public", http.MethodGet, "/api/courses", "", http.StatusOK},
		{"content needs login", http.MethodGet, "/api/courses/c1/content", "", http.StatusUnauthorized},
		{"content with login", http.MethodGet, "/api/courses/c1/content", model.Student, http.StatusOK},
		{"review reply needs admin", http.MethodPost, "/api/courses/c1/reviews/r1/replies", model.Student, http.StatusForbidden},
		{"admin list needs admin", http.MethodGet, "/api/admin/courses", model.Student, http.StatusForbidden},
		{"admin list", http.MethodGet, "/api/admin/courses", model.Admin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.role != "" {
				req.Header.Set("Authorization", "Bearer "+tokens[tt.role])
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestApplyConfigRunsCallbacks(t *testing.T) {
	a := &App{}
	var got []bool
	a.RegisterConfigCallback(func(cfg *config.Config) { got = append(got, cfg.Cache.InvalidateOnWrite) })
	a.RegisterConfigCallback(func(cfg *config.Config) { got = append(got, !cfg.Cache.InvalidateOnWrite) })

	a.ApplyConfig(&config.Config{Cache: config.CacheConfig{InvalidateOnWrite: true}})
	assert.Equal(t, []bool{true, false}, got)
}
