package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var ErrNoTodoService = errors.New("todo service is required")

type Server struct {
	router *gin.Engine

	httpSrv *http.Server
}

type ServerOptions struct {
	TodoService todoService
	Logger      *zap.Logger
	Addr        string
	// AllowOrigins enables CORS for these origins. Empty disables CORS.
	AllowOrigins []string
}

func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.TodoService == nil {
		return nil, ErrNoTodoService
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(
		RecoveryMiddleware(opts.Logger),
		RequestIDMiddleware(),
		LoggingMiddleware(opts.Logger),
	)
	if len(opts.AllowOrigins) > 0 {
		router.Use(CORSMiddleware(opts.AllowOrigins))
	}

	h := NewHandler(opts.TodoService, opts.Logger)
	setupRouter(router, h)

	return &Server{
		router: router,
		httpSrv: &http.Server{
			Addr:    opts.Addr,
			Handler: router,
		}}, nil
}

func (s *Server) Run() error {
	return s.httpSrv.ListenAndServe()
}
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) Router() http.Handler {
	return s.router
}

func setupRouter(router *gin.Engine, h *handler) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	group := router.Group("/api")
	group.GET("/tasks", h.listTasks)
	group.POST("/tasks", h.createTask)
	group.GET("/tasks/:id", h.getTask)
	group.PUT("/tasks/:id", h.updateTask)
	group.DELETE("/tasks/:id", h.deleteTask)

	group.POST("/undo", h.undo)
	group.GET("/history", h.history)

	group.GET("/queue", h.peekQueue)
	group.POST("/queue/process", h.processNext)

	group.GET("/stats", h.stats)
}
