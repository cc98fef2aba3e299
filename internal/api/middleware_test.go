package api

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lingochat/lingochat/internal/database"
	"github.com/lingochat/lingochat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, db database.LingoChatRepository) *LingoChatApp {
	t.Helper()

	return &LingoChatApp{
		log:             testutil.TestLogger(t),
		db:              db,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		generateShortId: func() (string, error) { return "roomabc", nil },
	}
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("missing cookie", func(t *testing.T) {
		app := newTestApp(t, &database.MockLingoChatRepository{})

		handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be reached")
		})

		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		db := &database.MockLingoChatRepository{}
		db.On("GetSessionByToken", "bogus").Return(database.Session{}, sql.ErrNoRows).Once()

		app := newTestApp(t, db)

		handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be reached")
		})

		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieKey, Value: "bogus"})

		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		db.AssertExpectations(t)
	})

	t.Run("valid token resolves the session", func(t *testing.T) {
		db := &database.MockLingoChatRepository{}
		db.On("GetSessionByToken", "tok-1").Return(database.Session{
			Token:     "tok-1",
			AccountId: 7,
			Username:  "mina",
		}, nil).Once()

		app := newTestApp(t, db)

		handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			require.True(t, ok)
			assert.Equal(t, 7, sess.AccountId)
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieKey, Value: "tok-1"})

		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
		db.AssertExpectations(t)
	})
}

func TestErrorHandler_recoversPanics(t *testing.T) {
	app := newTestApp(t, &database.MockLingoChatRepository{})

	handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
}
