package controller

import (
	"bytes"
	"context"
	"course_hub_backend/internal/model"
	"course_hub_backend/internal/service"
	"course_hub_backend/internal/util"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCourses struct {
	CourseUseCases
	addReview  func(actor *model.Actor, courseID string, req service.AddReviewRequest) (*model.Course, error)
	getContent func(actor *model.Actor, id string) ([]model.ContentItem, error)
	getPublic  func(id string) (json.RawMessage, error)
	create     func(req service.CreateCourseRequest) (*model.Course, error)
	edit       func(id string, req service.EditCourseRequest) (*model.Course, error)
	listAdmin  func() ([]model.CourseSummary, error)
	// 其余写操作记录收到的路由参数
	mutation func(op string, params []string) (*model.Course, error)
	deleted  []string
}

func (f *fakeCourses) GetPublicCourse(ctx context.Context, id string) (json.RawMessage, error) {
	return f.getPublic(id)
}

func (f *fakeCourses) GetCourseContent(ctx context.Context, actor *model.Actor, id string) ([]model.ContentItem, error) {
	return f.getContent(actor, id)
}

func (f *fakeCourses) AddReview(ctx context.Context, actor *model.Actor, courseID string, req service.AddReviewRequest) (*model.Course, error) {
	return f.addReview(actor, courseID, req)
}

func (f *fakeCourses) AddQuestion(ctx context.Context, actor *model.Actor, courseID, contentID string, req service.AddQuestionRequest) (*model.Course, error) {
	return f.mutation("question", []string{courseID, contentID, req.Question})
}

func (f *fakeCourses) AddAnswer(ctx context.Context, actor *model.Actor, courseID, contentID, questionID string, req service.AddAnswerRequest) (*model.Course, error) {
	return f.mutation("answer", []string{courseID, contentID, questionID, req.Answer})
}

func (f *fakeCourses) AddReplyToReview(ctx context.Context, actor *model.Actor, courseID, reviewID string, req service.AddReviewReplyRequest) (*model.Course, error) {
	return f.mutation("reply", []string{courseID, reviewID, req.Comment})
}

func (f *fakeCourses) EditCourse(ctx context.Context, id string, req service.EditCourseRequest) (*model.Course, error) {
	return f.edit(id, req)
}

func (f *fakeCourses) ListCoursesAdmin(ctx context.Context) ([]model.CourseSummary, error) {
	return f.listAdmin()
}

func (f *fakeCourses) CreateCourse(ctx context.Context, req service.CreateCourseRequest) (*model.Course, error) {
	return f.create(req)
}

func (f *fakeCourses) DeleteCourse(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	if id == "missing" {
		return util.ErrCourseNotFound
	}
	return nil
}

func newTestRouter(f *fakeCourses, actor *model.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if actor != nil {
			c.Set(util.ContextActorKey, actor)
		}
		c.Next()
	})
	ctl := NewCourseController(f)
	r.GET("/api/courses/:id", ctl.GetCourse)
	r.GET("/api/courses/:id/content", ctl.GetCourseContent)
	r.POST("/api/courses/:id/contents/:contentId/questions", ctl.AddQuestion)
	r.POST("/api/courses/:id/contents/:contentId/questions/:questionId/answers", ctl.AddAnswer)
	r.POST("/api/courses/:id/reviews", ctl.AddReview)
	r.POST("/api/courses/:id/reviews/:reviewId/replies", ctl.AddReplyToReview)
	r.GET("/api/admin/courses", ctl.ListCoursesAdmin)
	r.POST("/api/admin/courses", ctl.CreateCourse)
	r.PUT("/api/admin/courses/:id", ctl.EditCourse)
	r.DELETE("/api/admin/courses/:id", ctl.DeleteCourse)
	return r
}

func do(r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, util.Response) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp util.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestGetCourseReturnsRawSnapshot(t *testing.T) {
	f := &fakeCourses{getPublic: func(id string) (json.RawMessage, error) {
		return json.RawMessage(fmt.Sprintf(`{"id":%q,"name":"Go"}`, id)), nil
	}}

	w, _ := do(newTestRouter(f, nil), http.MethodGet, "/api/courses/abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":200,"message":"success","data":{"id":"abc","name":"Go"}}`, w.Body.String())
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{util.ErrCourseNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: course id %q", util.ErrInvalidID, "x"), http.StatusBadRequest},
		{util.ErrInvalidContentID, http.StatusBadRequest},
		{util.ErrInvalidQuestionID, http.StatusBadRequest},
		{util.ErrInvalidReviewID, http.StatusBadRequest},
		{util.ErrValidation, http.StatusBadRequest},
		{util.ErrPermissionDenied, http.StatusForbidden},
		{util.ErrVersionConflict, http.StatusConflict},
		{fmt.Errorf("%w: find course: timeout", util.ErrStorage), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			f := &fakeCourses{getContent: func(actor *model.Actor, id string) ([]model.ContentItem, error) {
				return nil, tc.err
			}}
			w, _ := do(newTestRouter(f, &model.Actor{UserID: 1}), http.MethodGet, "/api/courses/abc/content", nil)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestAddReviewPartialSuccess(t *testing.T) {
	actor := &model.Actor{UserID: 3, Name: "amy"}
	f := &fakeCourses{addReview: func(a *model.Actor, courseID string, req service.AddReviewRequest) (*model.Course, error) {
		assert.Same(t, actor, a)
		assert.Equal(t, 4, req.Rating)
		course := &model.Course{Name: "Go"}
		course.ID = courseID
		return course, util.NewSideEffectError(errors.New("insert failed"), nil)
	}}

	w, resp := do(newTestRouter(f, actor), http.MethodPost, "/api/courses/c1/reviews", gin.H{"review": "nice", "rating": 4})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial success", resp.Message)
	assert.Equal(t, []string{"notification could not be created"}, resp.Warnings)
	assert.NotNil(t, resp.Data)
}

func TestAddReviewBindingErrors(t *testing.T) {
	f := &fakeCourses{addReview: func(*model.Actor, string, service.AddReviewRequest) (*model.Course, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	r := newTestRouter(f, &model.Actor{UserID: 1})

	w, _ := do(r, http.MethodPost, "/api/courses/c1/reviews", gin.H{"rating": 4})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCourseReturnsCreated(t *testing.T) {
	f := &fakeCourses{create: func(req service.CreateCourseRequest) (*model.Course, error) {
		course := &model.Course{Name: req.Name}
		course.ID = "new-id"
		return course, nil
	}}

	w, resp := do(newTestRouter(f, nil), http.MethodPost, "/api/admin/courses", gin.H{"name": "Go", "price": 10})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "created", resp.Message)
}

func TestDeleteCourse(t *testing.T) {
	f := &fakeCourses{}
	r := newTestRouter(f, nil)

	w, _ := do(r, http.MethodDelete, "/api/admin/courses/c1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(r, http.MethodDelete, "/api/admin/courses/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, []string{"c1", "missing"}, f.deleted)
}

func TestMutationRoutesPassPathParams(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   gin.H
		op     string
		params []string
	}{
		{"question", "/api/courses/c1/contents/k2/questions", gin.H{"question": "why?"},
			"question", []string{"c1", "k2", "why?"}},
		{"answer", "/api/courses/c1/contents/k2/questions/q3/answers", gin.H{"answer": "because"},
			"answer", []string{"c1", "k2", "q3", "because"}},
		{"review reply", "/api/courses/c1/reviews/r4/replies", gin.H{"comment": "thanks"},
			"reply", []string{"c1", "r4", "thanks"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOp string
			var gotParams []string
			f := &fakeCourses{mutation: func(op string, params []string) (*model.Course, error) {
				gotOp, gotParams = op, params
				course := &model.Course{Name: "Go"}
				course.ID = params[0]
				return course, nil
			}}

			w, resp := do(newTestRouter(f, &model.Actor{UserID: 1}), http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "success", resp.Message)
			assert.Equal(t, tt.op, gotOp)
			assert.Equal(t, tt.params, gotParams)
		})
	}
}

func TestMutationRoutesRejectEmptyBody(t *testing.T) {
	f := &fakeCourses{mutation: func(string, []string) (*model.Course, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	r := newTestRouter(f, &model.Actor{UserID: 1})

	for _, path := range []string{
		"/api/courses/c1/contents/k2/questions",
		"/api/courses/c1/contents/k2/questions/q3/answers",
		"/api/courses/c1/reviews/r4/replies",
	} {
		w, _ := do(r, http.MethodPost, path, gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestAddAnswerPartialSuccess(t *testing.T) {
	f := &fakeCourses{mutation: func(op string, params []string) (*model.Course, error) {
		course := &model.Course{Name: "Go"}
		course.ID = params[0]
		return course, util.NewSideEffectError(nil, errors.New("smtp: 421 try later"))
	}}

	w, resp := do(newTestRouter(f, &model.Actor{UserID: 2}), http.MethodPost,
		"/api/courses/c1/contents/k2/questions/q3/answers", gin.H{"answer": "because"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial success", resp.Message)
	assert.Equal(t, []string{"email could not be sent"}, resp.Warnings)
	assert.NotNil(t, resp.Data)
}

func TestEditCourseBindsThumbnailOutsidePatch(t *testing.T) {
	var got service.EditCourseRequest
	f := &fakeCourses{edit: func(id string, req service.EditCourseRequest) (*model.Course, error) {
		assert.Equal(t, "c1", id)
		got = req
		course := &model.Course{Name: *req.Name}
		course.ID = id
		return course, nil
	}}

	w, _ := do(newTestRouter(f, nil), http.MethodPut, "/api/admin/courses/c1",
		gin.H{"name": "Go 2", "thumbnail": "data:image/png;base64,AAAA"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.Thumbnail)
	assert.Equal(t, "data:image/png;base64,AAAA", *got.Thumbnail)
	assert.Nil(t, got.CoursePatch.Thumbnail)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Go 2", *got.Name)
	assert.Nil(t, got.Price)
}

func TestEditCourseNotFound(t *testing.T) {
	f := &fakeCourses{edit: func(string, service.EditCourseRequest) (*model.Course, error) {
		return nil, util.ErrCourseNotFound
	}}

	w, _ := do(newTestRouter(f, nil), http.MethodPut, "/api/admin/courses/gone", gin.H{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListCoursesAdmin(t *testing.T) {
	f := &fakeCourses{listAdmin: func() ([]model.CourseSummary, error) {
		return []model.CourseSummary{
			{ID: "c2", Name: "Rust", ReviewCount: 1},
			{ID: "c1", Name: "Go", ContentCount: 3},
		}, nil
	}}

	w, _ := do(newTestRouter(f, nil), http.MethodGet, "/api/admin/courses", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []model.CourseSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "c2", body.Data[0].ID)
	assert.Equal(t, 3, body.Data[1].ContentCount)

	f.listAdmin = func() ([]model.CourseSummary, error) {
		return nil, fmt.Errorf("%w: list courses: timeout", util.ErrStorage)
	}
	w, _ = do(newTestRouter(f, nil), http.MethodGet, "/api/admin/courses", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
