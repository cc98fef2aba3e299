package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/lingochat/lingochat/internal/database"
	"github.com/lingochat/lingochat/internal/server"
	"github.com/lingochat/lingochat/internal/translation"
	"github.com/lingochat/lingochat/internal/types"
	"github.com/samber/lo"
)

type CreateRoomRequest struct {
	Name string `json:"name" validate:"required,min=1,max=64"`
}

type CreateDirectRoomRequest struct {
	PeerId int `json:"peer_id" validate:"required,gt=0"`
}

func (s *LingoChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *LingoChatApp) createRoom(w http.ResponseWriter, r *http.Request) {
	var createRoomReq CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&createRoomReq); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.validate.Struct(createRoomReq); err != nil {
		errResp := NewValidationError(err.Error())
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sess, ok := SessionFromContext(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateRoomParams{
		Name:       createRoomReq.Name,
		ExternalId: sid,
		RoomType:   types.RoomTypeGroup,
		OwnerId:    sess.AccountId,
	}

	newRoom, err := s.db.CreateRoom(params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.AddRoomMember(sess.AccountId, newRoom.Id); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.Room{
		Id:         newRoom.Id,
		ExternalId: newRoom.ExternalId,
		Name:       newRoom.Name,
		RoomType:   newRoom.RoomType,
		CreatedAt:  newRoom.CreatedAt,
	})
}

// createDirectRoom finds or creates the one direct room between the
// caller and the peer. Repeat calls and swapped participants land on the
// same room.
func (s *LingoChatApp) createDirectRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateDirectRoomRequest
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

	sess, ok := SessionFromContext(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.PeerId == sess.AccountId {
		errResp := NewValidationError("cannot open a direct room with yourself")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	peer, err := s.db.GetAccountById(req.PeerId)
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

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateRoomParams{
		Name:       fmt.Sprintf("%s & %s", sess.Username, peer.Username),
		ExternalId: sid,
		RoomType:   types.RoomTypeDirect,
		PairKey:    directPairKey(sess.AccountId, peer.Id),
		OwnerId:    sess.AccountId,
	}

	room, err := s.db.GetOrCreateDirectRoom(params, sess.AccountId, peer.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.Room{
		Id:         room.Id,
		ExternalId: room.ExternalId,
		Name:       room.Name,
		RoomType:   room.RoomType,
		CreatedAt:  room.CreatedAt,
	})
}

// directPairKey is order-insensitive so both participants resolve to the
// same row.
func directPairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func (s *LingoChatApp) listRooms(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRooms, err := s.db.ListRoomsForAccount(sess.AccountId)
	if err != nil {
		s.log.Println("list rooms:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	rooms := make([]types.Room, 0, len(dbRooms))
	for _, dbRoom := range dbRooms {
		unread, err := s.db.UnreadCountForAccount(dbRoom.Id, sess.AccountId)
		if err != nil {
			s.log.Printf("unread count for room %d: %v", dbRoom.Id, err)
		}

		rooms = append(rooms, types.Room{
			Id:         dbRoom.Id,
			ExternalId: dbRoom.ExternalId,
			Name:       dbRoom.Name,
			RoomType:   dbRoom.RoomType,
			Members: lo.Map(dbRoom.Members, func(a database.Account, _ int) types.User {
				return types.User{
					Id:               a.Id,
					Username:         a.Username,
					NativeLanguage:   types.Language(a.NativeLanguage),
					LearningLanguage: types.Language(a.LearningLanguage),
				}
			}),
			UnreadCount: unread,
			CreatedAt:   dbRoom.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *LingoChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("room_id")
	if externalId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoomByExternalId(externalId)
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

	if !s.db.IsRoomMember(sess.AccountId, room.Id) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var limit int
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbMsgs, err := s.db.GetRoomMessages(room.Id, limit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbTranslations, err := s.db.GetRoomTranslations(room.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	byMessage := make(map[string][]database.Translation)
	for _, tr := range dbTranslations {
		byMessage[tr.MessageId] = append(byMessage[tr.MessageId], tr)
	}

	messages := lo.Map(dbMsgs, func(m database.Message, _ int) types.Message {
		msg := types.Message{
			MessageId:        m.MessageId,
			RoomId:           room.ExternalId,
			SenderUserId:     m.SenderId,
			SenderUsername:   m.SenderUsername,
			OriginalText:     m.OriginalText,
			OriginalLanguage: types.Language(m.OriginalLanguage),
			CreatedAt:        m.CreatedAt,
		}

		if trs := byMessage[m.MessageId]; len(trs) > 0 {
			msg.Translations = make(map[types.Language]string, len(trs))
			msg.Highlights = make(map[types.Language]types.Span, len(trs))
			for _, tr := range trs {
				lang := types.Language(tr.TargetLanguage)
				msg.Translations[lang] = tr.TranslatedText
				msg.Highlights[lang] = translation.SelectHighlight(tr.TranslatedText)
			}
		}

		return msg
	})

	s.writeJson(w, http.StatusOK, messages)
}

func (s *LingoChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
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

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(types.User{
		Id:               user.Id,
		Username:         user.Username,
		EmailAddress:     user.EmailAddress,
		NativeLanguage:   types.Language(user.NativeLanguage),
		LearningLanguage: types.Language(user.LearningLanguage),
		CreatedAt:        user.CreatedAt,
	}, sess.Token, conn, s.cs, s.log)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
