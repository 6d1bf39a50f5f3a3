package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"taskboard/internal/config"
	"taskboard/internal/ratelimit"
	"taskboard/internal/service"
)

// Server wires the domain services into an HTTP API.
type Server struct {
	cfg     config.Config
	tasks   *service.TaskService
	tags    *service.TagService
	audit   *service.AuditService
	general *ratelimit.Limiter
	strict  *ratelimit.Limiter
}

func New(cfg config.Config, tasks *service.TaskService, tags *service.TagService, audit *service.AuditService, general, strict *ratelimit.Limiter) *Server {
	return &Server{
		cfg:     cfg,
		tasks:   tasks,
		tags:    tags,
		audit:   audit,
		general: general,
		strict:  strict,
	}
}

// Router builds the gin engine with middleware and all routes.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After", "Content-Disposition"},
		AllowCredentials: true,
	}))
	router.Use(RateLimitMiddleware(s.general, s.strict))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1", AuthMiddleware([]byte(s.cfg.JWTSecret)))

	tasks := api.Group("/tasks")
	tasks.GET("", s.listTasks)
	tasks.POST("", s.createTask)
	tasks.GET("/:id", s.getTask)
	tasks.PATCH("/:id", s.updateTask)
	tasks.DELETE("/:id", s.deleteTask)
	tasks.POST("/:id/complete", s.completeTask)
	tasks.POST("/:id/uncomplete", s.uncompleteTask)
	tasks.GET("/:id/audit", s.taskAudit)

	tags := api.Group("/tags")
	tags.GET("", s.listTags)
	tags.POST("", s.createTag)
	tags.GET("/:id", s.getTag)
	tags.PATCH("/:id", s.updateTag)
	tags.DELETE("/:id", s.deleteTag)

	// Export sits outside /tasks so the static segment never competes
	// with the :id route.
	api.GET("/export/tasks", s.exportTasks)

	return router
}

// abortForAccess translates an AccessResult into the response status.
// Not-found and forbidden are deliberately never conflated.
func abortForAccess(c *gin.Context, result service.AccessResult, resource string) bool {
	switch result {
	case service.AccessNotFound:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
		return true
	case service.AccessForbidden:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you do not have access to this " + resource})
		return true
	}
	return false
}

// abortForError maps domain errors to statuses; anything unrecognized
// is an internal error, never a domain-specific access result.
func abortForError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateTagName):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyTagName),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrTooManyTags):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// pagination parses page/page_size with the given default size, capping
// page size at 100.
func pagination(c *gin.Context, defaultSize int) (page, pageSize int) {
	page = parsePositiveInt(c.Query("page"), 1)
	pageSize = parsePositiveInt(c.Query("page_size"), defaultSize)
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int64 {
	return (total + int64(pageSize) - 1) / int64(pageSize)
}
