package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/lingochat/lingochat/internal/database"
	"github.com/lingochat/lingochat/internal/types"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookieExpiration = 30 * 24 * time.Hour

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

type SignupRequest struct {
	Username         string `json:"username" validate:"required,min=2,max=32"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	NativeLanguage   string `json:"native_language" validate:"required,oneof=ko en es"`
	LearningLanguage string `json:"learning_language" validate:"required,oneof=ko en es,nefield=NativeLanguage"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *LingoChatApp) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.validate.Struct(req); err != nil {
		errResp := NewValidationError(err.Error())
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateAccountParams{
		Username:         req.Username,
		EmailAddress:     req.Email,
		PasswordHash:     pwdHash,
		NativeLanguage:   req.NativeLanguage,
		LearningLanguage: req.LearningLanguage,
	}

	newUser, err := s.db.CreateAccount(params)
	if err != nil {
		var errResp *ApiError
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			errResp = NewConflictError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.User{
		Id:               newUser.Id,
		Username:         newUser.Username,
		EmailAddress:     newUser.EmailAddress,
		NativeLanguage:   types.Language(newUser.NativeLanguage),
		LearningLanguage: types.Language(newUser.LearningLanguage),
		CreatedAt:        newUser.CreatedAt,
	})
}

func (s *LingoChatApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.validate.Struct(lr); err != nil {
		errResp := NewValidationError(err.Error())
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewUnauthorizedError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// opaque server-side token: revocation and activity tracking are
	// row updates, not token mechanics
	sess, err := s.db.CreateSession(uuid.NewString(), dbUser.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, sessionCookie(sess.Token, time.Now().Add(sessionCookieExpiration)))

	s.writeJson(w, http.StatusOK, types.User{
		Id:               dbUser.Id,
		Username:         dbUser.Username,
		EmailAddress:     dbUser.EmailAddress,
		NativeLanguage:   types.Language(dbUser.NativeLanguage),
		LearningLanguage: types.Language(dbUser.LearningLanguage),
		CreatedAt:        dbUser.CreatedAt,
	})
}

func (s *LingoChatApp) logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteSession(sess.Token); err != nil {
		s.log.Println("DeleteSession:", err)
	}

	// instruct the browser to drop the cookie by overwriting it expired
	http.SetCookie(w, sessionCookie("", time.Unix(0, 0)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *LingoChatApp) session(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(sess.AccountId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.User{
		Id:               user.Id,
		Username:         user.Username,
		EmailAddress:     user.EmailAddress,
		NativeLanguage:   types.Language(user.NativeLanguage),
		LearningLanguage: types.Language(user.LearningLanguage),
		CreatedAt:        user.CreatedAt,
	})
}

func sessionCookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieKey,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func hashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func verifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}
