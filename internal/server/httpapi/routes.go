package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/taskhub/internal/logging"
	"github.com/dmitrijs2005/taskhub/internal/server/auth"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
	"github.com/dmitrijs2005/taskhub/internal/server/services"
	"github.com/dmitrijs2005/taskhub/internal/server/throttle"
)

// UserService is the account side of the API, implemented by
// *services.UserService.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, userName, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Authenticate(ctx context.Context, accessToken string) (*auth.Identity, error)
}

// TaskService is implemented by *services.TaskService.
type TaskService interface {
	Create(ctx context.Context, in services.CreateTaskInput) (*models.Task, error)
	Assign(ctx context.Context, taskID int64, userIDs []int64) (*services.AssignmentResult, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Task, error)
}

// Options configures an API. Nil limiters disable throttling for that class;
// a nil HealthCheck always reports healthy.
type Options struct {
	AnonLimiter *throttle.Limiter
	UserLimiter *throttle.Limiter
	HealthCheck func(context.Context) error
}

// API holds the handlers and their dependencies.
type API struct {
	users  UserService
	tasks  TaskService
	logger logging.Logger
	opts   Options
}

func NewAPI(l logging.Logger, us UserService, ts TaskService, opts Options) *API {
	return &API{
		users:  us,
		tasks:  ts,
		logger: l.With("module", "http_api"),
		opts:   opts,
	}
}

// Routes builds the full handler: request id, access log and panic recovery
// around the mux; per route throttling and bearer auth inside it.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	anon := func(h http.HandlerFunc) http.Handler {
		return chain(h, throttled(a.opts.AnonLimiter, anonKey))
	}
	user := func(h http.HandlerFunc) http.Handler {
		return chain(h, a.authenticate, throttled(a.opts.UserLimiter, userKey))
	}

	mux.HandleFunc("GET /health", a.health)

	mux.Handle("POST /register/{$}", anon(a.register))
	mux.Handle("POST /login/{$}", anon(a.login))
	mux.Handle("POST /refresh/{$}", anon(a.refresh))

	mux.Handle("POST /tasks/create/{$}", user(a.createTask))
	mux.Handle("POST /tasks/{id}/assign/{$}", user(a.assignTask))
	mux.Handle("GET /users/{id}/tasks/{$}", user(a.listUserTasks))

	return chain(mux, withRequestID, a.accessLog, a.recoverer)
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if a.opts.HealthCheck != nil {
		if err := a.opts.HealthCheck(r.Context()); err != nil {
			a.logger.Warn(r.Context(), "health check failed", "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Status: "error", Error: "database unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
