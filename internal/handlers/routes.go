package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workforce-api/internal/middleware"
	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/repository"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Projects *ProjectHandler
	Tasks    *TaskHandler
	WorkLogs *WorkLogHandler
	Admin    *AdminHandler
}

// RegisterRoutes mounts the API. Session middleware must already be installed on r.
func RegisterRoutes(r *gin.Engine, h Handlers, userRepo repository.UserRepository, tokenSecret []byte) {
	requireAuth := middleware.RequireAuth(userRepo, tokenSecret)

	r.GET("/health", h.Admin.Health)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/face", h.Auth.FaceLogin)
			auth.POST("/logout", h.Auth.Logout)
			auth.GET("/me", requireAuth, h.Auth.GetCurrentUser)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.POST("", h.Users.CreateUser)
			users.GET("", h.Users.ListUsers)
			users.GET("/:id", h.Users.GetUser)
			users.PATCH("/:id", h.Users.UpdateUser)
			users.GET("/:id/credentials", h.Users.GetCredentials)
			users.DELETE("/:id", h.Users.DeactivateUser)
		}

		projects := api.Group("/projects")
		projects.Use(requireAuth)
		{
			projects.POST("", h.Projects.CreateProject)
			projects.GET("", h.Projects.ListProjects)
			projects.GET("/:id", h.Projects.GetProject)
			projects.PATCH("/:id", h.Projects.UpdateProject)
			projects.DELETE("/:id", h.Projects.DeactivateProject)
			projects.POST("/:id/tasks/generate", h.Projects.GenerateTasks)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.POST("", h.Tasks.CreateTask)
			tasks.GET("", h.Tasks.ListTasks)
			tasks.GET("/:id", h.Tasks.GetTask)
			tasks.PATCH("/:id", h.Tasks.UpdateTask)
			tasks.DELETE("/:id", h.Tasks.DeactivateTask)
		}

		worklogs := api.Group("/worklogs")
		worklogs.Use(requireAuth)
		{
			worklogs.POST("", h.WorkLogs.SubmitWorkLog)
			worklogs.GET("", h.WorkLogs.ListWorkLogs)
		}

		admin := api.Group("/admin")
		admin.Use(requireAuth, middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/reconcile", h.Admin.Reconcile)
		}
	}
}
