package app

import (
	"course_hub_backend/docs"
	"course_hub_backend/internal/config"
	"course_hub_backend/internal/middleware"
	"course_hub_backend/internal/model"
	"course_hub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, users middleware.UserLoader, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	auth := middleware.AuthMiddleware(cfg.JWT.Secret, users)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要登录的课程交互
	a.registerUserRoutes(router.Group("/api", auth), c)

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, auth)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/courses", c.course.ListCourses)
		public.GET("/courses/:id", c.course.GetCourse)
	}
}

func (a *App) registerUserRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/courses/:id/content", c.course.GetCourseContent)
	group.POST("/courses/:id/contents/:contentId/questions", c.course.AddQuestion)
	group.POST("/courses/:id/contents/:contentId/questions/:questionId/answers", c.course.AddAnswer)
	group.POST("/courses/:id/reviews", c.course.AddReview)
	group.POST("/courses/:id/reviews/:reviewId/replies", middleware.RoleMiddleware(model.Admin), c.course.AddReplyToReview)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, auth gin.HandlerFunc) {
	admin := router.Group("/api/admin", auth, middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/courses", c.course.ListCoursesAdmin)
		admin.POST("/courses", c.course.CreateCourse)
		admin.PUT("/courses/:id", c.course.EditCourse)
		admin.DELETE("/courses/:id", c.course.DeleteCourse)
	}
}
