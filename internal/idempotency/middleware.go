package idempotency

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/GiorgiUbiria/textng_payments/internal/httputil"
	"github.com/GiorgiUbiria/textng_payments/internal/logger"
	appmw "github.com/GiorgiUbiria/textng_payments/internal/middleware"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const Header = "Idempotency-Key"

// Middleware replays stored responses for requests whose Idempotency-Key was
// already completed by the same user on the same route. Requests without the
// header, and every request when s is nil, pass straight through. 5xx
// responses are not stored.
func Middleware(s *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if s == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(Header)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := appmw.UserIDFromContext(r.Context())
			if !ok {
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			key := Key(userID, r.URL.Path, clientKey)
			stored, err := s.Claim(r.Context(), key)
			switch {
			case errors.Is(err, ErrInFlight):
				httputil.WriteError(w, http.StatusConflict, err.Error())
				return
			case err != nil:
				logger.Log.Error("idempotency claim failed", zap.String("key", key), zap.Error(err))
				httputil.WriteError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
				return
			case stored != nil:
				logger.Log.Info("replaying idempotent response", zap.String("key", key), zap.Int("status", stored.Status))
				replay(w, stored)
				return
			}

			// The request context may already be cancelled by the client.
			ctx := context.WithoutCancel(r.Context())
			// Panics and 5xx answers release the key; anything else keeps it.
			completed := false
			defer func() {
				if completed {
					return
				}
				if err := s.Release(ctx, key); err != nil {
					logger.Log.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
				}
			}()

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				return
			}
			resp := Response{Status: status, ContentType: ww.Header().Get("Content-Type"), Body: body.Bytes()}
			if err := s.Complete(ctx, key, resp); err != nil {
				logger.Log.Error("idempotency store failed", zap.String("key", key), zap.Error(err))
			}
			completed = true
		})
	}
}

func replay(w http.ResponseWriter, resp *Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
