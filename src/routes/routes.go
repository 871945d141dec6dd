package routes

import (
	"context"
	"net/http"
	"time"

	"todo-app/src/interface/handler"
	"todo-app/src/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthChecker reports whether the store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options collects what the router needs besides the todo handler.
type Options struct {
	Logger  *logrus.Logger
	Health  HealthChecker
	Metrics http.Handler
}

// NewRouter creates a gin engine with the global middleware and all routes.
func NewRouter(todoHandler *handler.TodoHandler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(opts.Logger))
	r.Use(middleware.CORSMiddleware())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	SetupRoutes(r, todoHandler, opts)
	return r
}

// SetupRoutes sets up all API routes
func SetupRoutes(r *gin.Engine, todoHandler *handler.TodoHandler, opts Options) {
	// ヘルスチェック用のエンドポイント
	r.GET("/health", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "UNAVAILABLE",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	todos := r.Group("/api/todos")
	{
		// 基本CRUD操作
		todos.GET("", todoHandler.ListTodos)              // GET /api/todos?scope=&q=&sort=
		todos.POST("", todoHandler.CreateTodo)            // POST /api/todos
		todos.GET("/counts", todoHandler.GetCounts)       // GET /api/todos/counts
		todos.GET("/:id", todoHandler.GetTodo)            // GET /api/todos/:id
		todos.PATCH("/:id", todoHandler.UpdateTodo)       // PATCH /api/todos/:id
		todos.DELETE("/:id", todoHandler.DeleteTodo)      // DELETE /api/todos/:id
		todos.POST("/:id/toggle", todoHandler.ToggleTodo) // POST /api/todos/:id/toggle

		// 一括操作
		todos.POST("/clear-completed", todoHandler.ClearCompleted) // POST /api/todos/clear-completed
		todos.POST("/mark-all", todoHandler.MarkAll)               // POST /api/todos/mark-all
	}
}
