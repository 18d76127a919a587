package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/warpfront/warpfront-server-go/internal/wire"
)

const (
	maxRequestBody = 1 << 20
	contentType    = "application/octet-stream"
	requestIDKey   = "X-Request-Id"
)

type ctxKey int

const requestIDCtxKey ctxKey = iota

// RequestID returns the id attached to ctx by the request-id middleware or
// interceptor.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}

// NewRouter registers every operation as a POST route plus the change feed.
func NewRouter(svc *Service, feed *Feed, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(RecoveryMiddleware(logger), RequestIDMiddleware(logger))

	for _, op := range Operations {
		r.Handle(op.Path(), operationHandler(svc, op)).Methods(http.MethodPost)
	}
	if feed != nil {
		r.Handle("/games/feed", feed).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

func operationHandler(svc *Service, op Operation) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
		if err != nil {
			writeResponse(w, svc.logger, &wire.Response{Status: wire.StatusBadRequest, Error: "request body too large"})
			return
		}

		var req wire.Request
		if err := wire.Unpack(body, &req); err != nil {
			writeResponse(w, svc.logger, failure(err))
			return
		}
		writeResponse(w, svc.logger, svc.Handle(r.Context(), op, &req))
	})
}

func writeResponse(w http.ResponseWriter, logger *zap.Logger, resp *wire.Response) {
	data, err := wire.Pack(resp)
	if err != nil {
		logger.Error("failed to encode response", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.Status)
	if _, err := w.Write(data); err != nil {
		logger.Debug("failed to write response", zap.Error(err))
	}
}

// RecoveryMiddleware turns handler panics into 500 responses.
func RecoveryMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					logger.Error("panic recovered",
						zap.String("path", r.URL.Path),
						zap.String("request_id", RequestID(r.Context())),
						zap.Any("panic", rec),
						zap.String("stack", string(buf[:n])),
					)
					writeResponse(w, logger, &wire.Response{
						Status: wire.StatusInternal,
						Error:  fmt.Sprintf("internal error: %v", rec),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDMiddleware tags each request with an id and logs its duration.
func RequestIDMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDKey)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDKey, id)
			ctx := context.WithValue(r.Context(), requestIDCtxKey, id)

			start := time.Now()
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.Debug("http request",
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// NewHTTPServer wraps the router in an http.Server with the given timeouts.
func NewHTTPServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}
