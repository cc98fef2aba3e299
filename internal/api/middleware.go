package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/lingochat/lingochat/internal/database"
)

type contextKey string

const sessionKey contextKey = "session"

const sessionCookieKey = "lingochat_session"

// SessionFromContext returns the session resolved by authMiddleware.
func SessionFromContext(ctx context.Context) (database.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(database.Session)
	return sess, ok
}

func (s *LingoChatApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// authMiddleware resolves the opaque session cookie against the sessions
// table. The token carries no claims: deleting the row is enough to
// revoke it.
func (s *LingoChatApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieKey)
		if err != nil {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		sess, err := s.db.GetSessionByToken(cookie.Value)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				s.log.Println("GetSessionByToken:", err)
			}
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
