package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/lingochat/lingochat/internal/database"
	"github.com/lingochat/lingochat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pqUniqueViolation = pq.Error{Code: uniqueViolation}

func withTestSession(ctx context.Context, sess database.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

func TestSignup(t *testing.T) {
	validBody := `{
		"username": "mina",
		"email": "mina@example.com",
		"password": "supersecret",
		"native_language": "ko",
		"learning_language": "en"
	}`

	t.Run("creates the account", func(t *testing.T) {
		db := &database.MockLingoChatRepository{}
		db.On("CreateAccount", mock.MatchedBy(func(p database.CreateAccountParams) bool {
			return p.Username == "mina" &&
				p.EmailAddress == "mina@example.com" &&
				p.NativeLanguage == "ko" &&
				p.LearningLanguage == "en" &&
				p.PasswordHash != "supersecret"
		})).Return(database.Account{
			Id:               1,
			Username:         "mina",
			EmailAddress:     "mina@example.com",
			NativeLanguage:   "ko",
			LearningLanguage: "en",
		}, nil).Once()

		app := newTestApp(t, db)

		rec := httptest.NewRecorder()
		app.signup(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(validBody)))

		require.Equal(t, http.StatusCreated, rec.Code)

		var u types.User
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&u))
		assert.Equal(t, "mina", u.Username)
		assert.Equal(t, types.LangKorean, u.NativeLanguage)
		assert.Empty(t, u.Password)

		db.AssertExpectations(t)
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"malformed json", `{`},
			{"bad email", `{"username":"mina","email":"nope","password":"supersecret","native_language":"ko","learning_language":"en"}`},
			{"short password", `{"username":"mina","email":"mina@example.com","password":"short","native_language":"ko","learning_language":"en"}`},
			{"unsupported language", `{"username":"mina","email":"mina@example.com","password":"supersecret","native_language":"fr","learning_language":"en"}`},
			{"same languages", `{"username":"mina","email":"mina@example.com","password":"supersecret","native_language":"en","learning_language":"en"}`},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				db := &database.MockLingoChatRepository{}
				app := newTestApp(t, db)

				rec := httptest.NewRecorder()
				app.signup(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(tc.body)))

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				db.AssertNotCalled(t, "CreateAccount")
			})
		}
	})

	t.Run("duplicate account", func(t *testing.T) {
		db := &database.MockLingoChatRepository{}
		db.On("CreateAccount", mock.Anything).Return(database.Account{}, &pqUniqueViolation).Once()

		app := newTestApp(t, db)

		rec := httptest.NewRecorder()
		app.signup(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(validBody)))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestLogin(t *testing.T) {
	hash, err := hashPassword("correct horse")
	require.NoError(t, err)

	account := database.Account{
		Id:               1,
		Username:         "mina",
		EmailAddress:     "mina@example.com",
		PasswordHash:     hash,
		NativeLanguage:   "ko",
		LearningLanguage: "en",
	}

	t.Run("success sets a session cookie", func(t *testing.T) {
		db := &database.MockLingoChatRepository{}
		db.On("GetAccountByEmail", "mina@example.com").Return(account, nil).Once()
		db.On("CreateSession", mock.AnythingOfType("string"), 1).Return(database.Session{Token: "tok-1", AccountId: 1}, nil).Once()

		app := newTestApp(t, db)

		rec := httptest.NewRecorder()
		app.login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"mina@example.com","password":"correct horse"}`)))

		require.Equal(t, http.StatusOK, rec.Code)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookieKey, cookies[0].Name)
		assert.Equal(t, "tok-1", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)

		db.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		db := &database.MockLingoChatRepository{}
		db.On("GetAccountByEmail", "mina@example.com").Return(account, nil).Once()

		app := newTestApp(t, db)

		rec := httptest.NewRecorder()
		app.login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"mina@example.com","password":"wrong"}`)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		db.AssertNotCalled(t, "CreateSession")
	})

	t.Run("unknown email", func(t *testing.T) {
		db := &database.MockLingoChatRepository{}
		db.On("GetAccountByEmail", "ghost@example.com").Return(database.Account{}, sql.ErrNoRows).Once()

		app := newTestApp(t, db)

		rec := httptest.NewRecorder()
		app.login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"ghost@example.com","password":"whatever"}`)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	db := &database.MockLingoChatRepository{}
	db.On("DeleteSession", "tok-1").Return(nil).Once()

	app := newTestApp(t, db)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil)
	req = req.WithContext(withTestSession(req.Context(), database.Session{Token: "tok-1", AccountId: 1}))

	rec := httptest.NewRecorder()
	app.logout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].Expires.Before(time.Now()), "cookie must be expired")

	db.AssertExpectations(t)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := hashPassword("hunter22")
	require.NoError(t, err)

	assert.True(t, verifyPassword(hash, "hunter22"))
	assert.False(t, verifyPassword(hash, "hunter2"))
	assert.False(t, verifyPassword("not a hash", "hunter22"))
}
