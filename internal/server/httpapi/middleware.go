package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/server/auth"
	"github.com/dmitrijs2005/taskhub/internal/server/throttle"
	"github.com/google/uuid"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// chain applies mws so that the first one is outermost.
func chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type ctxKey string

const requestInfoKey ctxKey = "request_info"

// requestInfo is filled in as the request moves through the chain, so the
// outer access log can see what inner middleware learned.
type requestInfo struct {
	id       string
	identity *auth.Identity
}

func infoFrom(ctx context.Context) *requestInfo {
	ri, _ := ctx.Value(requestInfoKey).(*requestInfo)
	return ri
}

// RequestID returns the id assigned to the current request, or "".
func RequestID(ctx context.Context) string {
	if ri := infoFrom(ctx); ri != nil {
		return ri.id
	}
	return ""
}

// IdentityFrom returns the authenticated caller, if any.
func IdentityFrom(ctx context.Context) (*auth.Identity, bool) {
	ri := infoFrom(ctx)
	if ri == nil || ri.identity == nil {
		return nil, false
	}
	return ri.identity, true
}

// withRequestID reuses a sane incoming X-Request-ID or generates one, and
// echoes it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(common.RequestIDHeaderName)
		if id == "" || len(id) > 128 || strings.ContainsFunc(id, func(r rune) bool { return r < 0x21 || r > 0x7e }) {
			id = uuid.NewString()
		}
		w.Header().Set(common.RequestIDHeaderName, id)

		ctx := context.WithValue(r.Context(), requestInfoKey, &requestInfo{id: id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (a *API) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
			"request_id", RequestID(r.Context()),
		}
		if id, ok := IdentityFrom(r.Context()); ok {
			args = append(args, "user_id", id.UserID)
		}
		a.logger.Info(r.Context(), "request", args...)
	})
}

func (a *API) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				a.logger.Error(r.Context(), "panic", "panic", p, "request_id", RequestID(r.Context()))
				writeError(w, http.StatusInternalServerError, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate requires a valid bearer access token.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		if header == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeError(w, http.StatusUnauthorized, msgNotAuthenticated)
			return
		}

		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeError(w, http.StatusUnauthorized, msgTokenInvalid)
			return
		}

		id, err := a.users.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			if errors.Is(err, common.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, msgTokenExpired)
			} else {
				writeError(w, http.StatusUnauthorized, msgTokenInvalid)
			}
			return
		}

		if ri := infoFrom(r.Context()); ri != nil {
			ri.identity = id
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the peer address of the connection. Forwarding headers are
// ignored since they are caller controlled.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func anonKey(r *http.Request) string {
	return "anon:" + clientIP(r)
}

// userKey falls back to the client address for unauthenticated requests.
func userKey(r *http.Request) string {
	if id, ok := IdentityFrom(r.Context()); ok {
		return "user:" + strconv.FormatInt(id.UserID, 10)
	}
	return anonKey(r)
}

func throttled(l *throttle.Limiter, key func(*http.Request) string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var rl *throttle.RateLimitedError
			if err := l.Allow(key(r)); errors.As(err, &rl) {
				writeThrottled(w, rl)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
