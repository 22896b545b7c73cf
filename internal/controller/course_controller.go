package controller

import (
	"context"
	"course_hub_backend/internal/model"
	"course_hub_backend/internal/service"
	"course_hub_backend/internal/util"
	"encoding/json"

	"github.com/gin-gonic/gin"
)

// CourseUseCases is the part of the course service the HTTP layer drives.
type CourseUseCases interface {
	GetPublicCourse(ctx context.Context, id string) (json.RawMessage, error)
	ListPublicCourses(ctx context.Context) (json.RawMessage, error)
	GetCourseContent(ctx context.Context, actor *model.Actor, id string) ([]model.ContentItem, error)
	AddQuestion(ctx context.Context, actor *model.Actor, courseID, contentID string, req service.AddQuestionRequest) (*model.Course, error)
	AddAnswer(ctx context.Context, actor *model.Actor, courseID, contentID, questionID string, req service.AddAnswerRequest) (*model.Course, error)
	AddReview(ctx context.Context, actor *model.Actor, courseID string, req service.AddReviewRequest) (*model.Course, error)
	AddReplyToReview(ctx context.Context, actor *model.Actor, courseID, reviewID string, req service.AddReviewReplyRequest) (*model.Course, error)
	CreateCourse(ctx context.Context, req service.CreateCourseRequest) (*model.Course, error)
	EditCourse(ctx context.Context, id string, req service.EditCourseRequest) (*model.Course, error)
	ListCoursesAdmin(ctx context.Context) ([]model.CourseSummary, error)
	DeleteCourse(ctx context.Context, id string) error
}

type CourseController struct {
	Courses CourseUseCases
}

func NewCourseController(courses CourseUseCases) *CourseController {
	return &CourseController{Courses: courses}
}

func respondCourse(ctx *gin.Context, course *model.Course, err error) {
	if course == nil {
		if err == nil {
			util.NotFound(ctx)
			return
		}
		util.HandleError(ctx, err)
		return
	}
	util.Respond(ctx, course, err)
}

// GetCourse godoc
// @Summary Get a course
// @Description Public projection of a course, without video urls, links, suggestions or questions
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	raw, err := c.Courses.GetPublicCourse(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, raw)
}

// ListCourses godoc
// @Summary List courses
// @Description Public projection of every course
// @Tags courses
// @Produce json
// @Success 200 {object} util.Response{data=[]model.Course}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	raw, err := c.Courses.ListPublicCourses(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, raw)
}

// GetCourseContent godoc
// @Summary Get the full content of a purchased course
// @Tags courses
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Course ID"
// @Success 200 {object} util.Response{data=[]model.ContentItem}
// @Failure 401 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/courses/{id}/content [get]
func (c *CourseController) GetCourseContent(ctx *gin.Context) {
	content, err := c.Courses.GetCourseContent(ctx.Request.Context(), util.GetActorFromContext(ctx), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, content)
}

// AddQuestion godoc
// @Summary Ask a question on a content item
// @Tags courses
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Course ID"
// @Param contentId path string true "Content item ID"
// @Param body body service.AddQuestionRequest true "Question"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/courses/{id}/contents/{contentId}/questions [post]
func (c *CourseController) AddQuestion(ctx *gin.Context) {
	var req service.AddQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Courses.AddQuestion(ctx.Request.Context(), util.GetActorFromContext(ctx),
		ctx.Param("id"), ctx.Param("contentId"), req)
	respondCourse(ctx, course, err)
}

// AddAnswer godoc
// @Summary Reply to a question
// @Description Emails the asker when someone else replies
// @Tags courses
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Course ID"
// @Param contentId path string true "Content item ID"
// @Param questionId path string true "Question ID"
// @Param body body service.AddAnswerRequest true "Answer"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/courses/{id}/contents/{contentId}/questions/{questionId}/answers [post]
func (c *CourseController) AddAnswer(ctx *gin.Context) {
	var req service.AddAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Courses.AddAnswer(ctx.Request.Context(), util.GetActorFromContext(ctx),
		ctx.Param("id"), ctx.Param("contentId"), ctx.Param("questionId"), req)
	respondCourse(ctx, course, err)
}

// AddReview godoc
// @Summary Review a purchased course
// @Tags courses
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Course ID"
// @Param body body service.AddReviewRequest true "Review, rating 1-5"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/courses/{id}/reviews [post]
func (c *CourseController) AddReview(ctx *gin.Context) {
	var req service.AddReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Courses.AddReview(ctx.Request.Context(), util.GetActorFromContext(ctx), ctx.Param("id"), req)
	respondCourse(ctx, course, err)
}

// AddReplyToReview godoc
// @Summary Reply to a review (Admin only)
// @Tags courses
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Course ID"
// @Param reviewId path string true "Review ID"
// @Param body body service.AddReviewReplyRequest true "Reply"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/courses/{id}/reviews/{reviewId}/replies [post]
func (c *CourseController) AddReplyToReview(ctx *gin.Context) {
	var req service.AddReviewReplyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Courses.AddReplyToReview(ctx.Request.Context(), util.GetActorFromContext(ctx),
		ctx.Param("id"), ctx.Param("reviewId"), req)
	respondCourse(ctx, course, err)
}

// ListCoursesAdmin godoc
// @Summary List course summaries (Admin only)
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.CourseSummary}
// @Router /api/admin/courses [get]
func (c *CourseController) ListCoursesAdmin(ctx *gin.Context) {
	rows, err := c.Courses.ListCoursesAdmin(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// CreateCourse godoc
// @Summary Create a course (Admin only)
// @Description The thumbnail is a base64 image, optionally as a data URI
// @Tags admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateCourseRequest true "Course"
// @Success 201 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response
// @Router /api/admin/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req service.CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Courses.CreateCourse(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// EditCourse godoc
// @Summary Edit course metadata (Admin only)
// @Tags admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Course ID"
// @Param body body service.EditCourseRequest true "Fields to change"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/courses/{id} [put]
func (c *CourseController) EditCourse(ctx *gin.Context) {
	var req service.EditCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Courses.EditCourse(ctx.Request.Context(), ctx.Param("id"), req)
	respondCourse(ctx, course, err)
}

// DeleteCourse godoc
// @Summary Delete a course (Admin only)
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Course ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	if err := c.Courses.DeleteCourse(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"message": "Course deleted successfully"})
}
