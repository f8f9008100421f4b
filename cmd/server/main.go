package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mauzec/todo-ds/internal/api"
	"github.com/mauzec/todo-ds/internal/config"
	"github.com/mauzec/todo-ds/internal/core"
	"github.com/mauzec/todo-ds/internal/oplog"
	"github.com/mauzec/todo-ds/internal/queue"
	"github.com/mauzec/todo-ds/internal/service"
	"github.com/mauzec/todo-ds/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	configAppName = "app"
	configExt     = "env"
	configDir     = "config"
)

func newLogger(logFile string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if logFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, logFile)
	}
	return cfg.Build()
}

func main() {
	cfg, err := readConfig()
	if err != nil || cfg == nil {
		_, _ = fmt.Fprintf(os.Stderr, "cant read config: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := newLogger(cfg.LogFile)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "can init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	logger := zapLogger.Named("server")
	logger.Info("running server",
		zap.Int("pid", os.Getpid()),
		zap.Int("undo_max_size", cfg.UndoMaxSize),
	)

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	svc, err := newTodoService(cfg, zapLogger.Named("service"))
	if err != nil {
		logger.Fatal("cant create todo service", zap.Error(err))
	}
	if cfg.SeedSampleTasks {
		if err := seedSampleTasks(ctx, svc); err != nil {
			logger.Warn("cant seed sample tasks", zap.Error(err))
		}
	}

	srv, err := api.NewServer(&api.ServerOptions{
		TodoService:  &todoServiceProxy{holder: &holder{svc: svc}},
		Logger:       zapLogger.Named("api"),
		Addr:         cfg.ServerAddr,
		AllowOrigins: cfg.AllowOrigins(),
	})
	if err != nil {
		logger.Fatal("cant create api server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.ServerAddr))
		if err := srv.Run(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				return
			}
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	offCtx, offCanc := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer offCanc()
	if err := srv.Shutdown(offCtx); err != nil {
		logger.Error("cant shutdown server", zap.Error(err))
	}
	logger.Info("shutdown done")
}

func readConfig() (*config.AppConfig, error) {
	return config.LoadAppConfig(configAppName, configExt, configDir)
}

func newTodoService(cfg *config.AppConfig, logger *zap.Logger) (*service.TodoService, error) {
	return service.NewTodoService(&service.TodoServiceOptions{
		Store:  storage.NewLinkedTaskStore(time.Now),
		Log:    oplog.New(cfg.UndoMaxSize),
		Queue:  queue.New(),
		Now:    time.Now,
		Logger: logger,
	})
}

var sampleTasks = []service.CreateTaskInput{
	{Title: "Complete project documentation", Description: "Write comprehensive docs", Priority: core.PriorityHigh},
	{Title: "Review code", Description: "Code review for pull request", Priority: core.PriorityMedium},
	{Title: "Update dependencies", Description: "Upgrade to latest versions", Priority: core.PriorityLow},
}

// seedSampleTasks adds a few tasks straight to the store, so they
// are neither undoable nor queued for processing.
func seedSampleTasks(ctx context.Context, svc *service.TodoService) error {
	return svc.Seed(ctx, sampleTasks...)
}

// holder serializes every call into the service. The service itself has no locking.
type holder struct {
	mu  sync.Mutex
	svc *service.TodoService
}

func (h *holder) withService(f func(*service.TodoService) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.svc == nil {
		return errors.New("service not available")
	}
	return f(h.svc)
}

type todoServiceProxy struct {
	holder *holder
}

func (p *todoServiceProxy) CreateTask(ctx context.Context, in service.CreateTaskInput) (*core.Task, error) {
	var res *core.Task
	err := p.holder.withService(func(ts *service.TodoService) error {
		var thisErr error
		res, thisErr = ts.CreateTask(ctx, in)
		return thisErr
	})
	return res, err
}
func (p *todoServiceProxy) GetTask(ctx context.Context, id int) (*core.Task, error) {
	var res *core.Task
	err := p.holder.withService(func(ts *service.TodoService) error {
		var thisErr error
		res, thisErr = ts.GetTask(ctx, id)
		return thisErr
	})
	return res, err
}
func (p *todoServiceProxy) ListTasks(ctx context.Context) ([]*core.Task, error) {
	var res []*core.Task
	err := p.holder.withService(func(ts *service.TodoService) error {
		var thisErr error
		res, thisErr = ts.ListTasks(ctx)
		return thisErr
	})
	return res, err
}
func (p *todoServiceProxy) UpdateTask(ctx context.Context, id int, patch core.TaskPatch) (*core.Task, error) {
	var res *core.Task
	err := p.holder.withService(func(ts *service.TodoService) error {
		var thisErr error
		res, thisErr = ts.UpdateTask(ctx, id, patch)
		return thisErr
	})
	return res, err
}
func (p *todoServiceProxy) DeleteTask(ctx context.Context, id int) error {
	return p.holder.withService(func(ts *service.TodoService) error {
		return ts.DeleteTask(ctx, id)
	})
}
func (p *todoServiceProxy) Undo(ctx context.Context) (*service.UndoResult, error) {
	var res *service.UndoResult
	err := p.holder.withService(func(ts *service.TodoService) error {
		var thisErr error
		res, thisErr = ts.Undo(ctx)
		return thisErr
	})
	return res, err
}
func (p *todoServiceProxy) ProcessNext(ctx context.Context) (*service.ProcessResult, error) {
	var res *service.ProcessResult
	err := p.holder.withService(func(ts *service.TodoService) error {
		var thisErr error
		res, thisErr = ts.ProcessNext(ctx)
		return thisErr
	})
	return res, err
}
func (p *todoServiceProxy) PeekQueue(ctx context.Context) (*service.QueueView, error) {
	var res *service.QueueView
	err := p.holder.withService(func(ts *service.TodoService) error {
		var thisErr error
		res, thisErr = ts.PeekQueue(ctx)
		return thisErr
	})
	return res, err
}
func (p *todoServiceProxy) History(ctx context.Context) ([]oplog.Descriptor, error) {
	var res []oplog.Descriptor
	err := p.holder.withService(func(ts *service.TodoService) error {
		var thisErr error
		res, thisErr = ts.History(ctx)
		return thisErr
	})
	return res, err
}
func (p *todoServiceProxy) Stats(ctx context.Context) (*service.Stats, error) {
	var res *service.Stats
	err := p.holder.withService(func(ts *service.TodoService) error {
		var thisErr error
		res, thisErr = ts.Stats(ctx)
		return thisErr
	})
	return res, err
}
