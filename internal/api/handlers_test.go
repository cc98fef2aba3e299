package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lingochat/lingochat/internal/database"
	"github.com/lingochat/lingochat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	db := &database.MockLingoChatRepository{}
	db.On("CreateRoom", mock.MatchedBy(func(p database.CreateRoomParams) bool {
		return p.Name == "study group" &&
			p.ExternalId == "roomabc" &&
			p.RoomType == types.RoomTypeGroup &&
			p.OwnerId == 1
	})).Return(database.Room{Id: 10, ExternalId: "roomabc", Name: "study group", RoomType: types.RoomTypeGroup}, nil).Once()
	db.On("AddRoomMember", 1, 10).Return(nil).Once()

	app := newTestApp(t, db)

	req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(`{"name":"study group"}`))
	req = req.WithContext(withTestSession(req.Context(), database.Session{Token: "tok", AccountId: 1, Username: "mina"}))

	rec := httptest.NewRecorder()
	app.createRoom(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var room types.Room
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&room))
	assert.Equal(t, "roomabc", room.ExternalId)
	assert.Equal(t, types.RoomTypeGroup, room.RoomType)

	db.AssertExpectations(t)
}

func TestCreateDirectRoom(t *testing.T) {
	t.Run("pair key is order insensitive", func(t *testing.T) {
		db := &database.MockLingoChatRepository{}
		db.On("GetAccountById", 1).Return(database.Account{Id: 1, Username: "mina"}, nil).Once()
		db.On("GetOrCreateDirectRoom", mock.MatchedBy(func(p database.CreateRoomParams) bool {
			// caller has the higher id; the key is still min:max
			return p.PairKey == "1:5" && p.RoomType == types.RoomTypeDirect
		}), 5, 1).Return(database.Room{Id: 20, ExternalId: "dm1", RoomType: types.RoomTypeDirect}, nil).Once()

		app := newTestApp(t, db)

		req := httptest.NewRequest(http.MethodPost, "/api/rooms/direct", strings.NewReader(`{"peer_id":1}`))
		req = req.WithContext(withTestSession(req.Context(), database.Session{Token: "tok", AccountId: 5, Username: "sam"}))

		rec := httptest.NewRecorder()
		app.createDirectRoom(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var room types.Room
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&room))
		assert.Equal(t, "dm1", room.ExternalId)

		db.AssertExpectations(t)
	})

	t.Run("rejects a direct room with yourself", func(t *testing.T) {
		db := &database.MockLingoChatRepository{}
		app := newTestApp(t, db)

		req := httptest.NewRequest(http.MethodPost, "/api/rooms/direct", strings.NewReader(`{"peer_id":5}`))
		req = req.WithContext(withTestSession(req.Context(), database.Session{Token: "tok", AccountId: 5}))

		rec := httptest.NewRecorder()
		app.createDirectRoom(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		db.AssertNotCalled(t, "GetOrCreateDirectRoom")
	})
}

func TestDirectPairKey(t *testing.T) {
	assert.Equal(t, "1:5", directPairKey(1, 5))
	assert.Equal(t, "1:5", directPairKey(5, 1))
}

func TestListRooms(t *testing.T) {
	db := &database.MockLingoChatRepository{}
	db.On("ListRoomsForAccount", 1).Return([]database.Room{
		{Id: 10, ExternalId: "roomabc", Name: "study group", RoomType: types.RoomTypeGroup},
		{Id: 20, ExternalId: "dm1", RoomType: types.RoomTypeDirect, Members: []database.Account{
			{Id: 1, Username: "mina", NativeLanguage: "ko", LearningLanguage: "en"},
			{Id: 5, Username: "sam", NativeLanguage: "en", LearningLanguage: "ko"},
		}},
	}, nil).Once()
	db.On("UnreadCountForAccount", 10, 1).Return(3, nil).Once()
	db.On("UnreadCountForAccount", 20, 1).Return(0, nil).Once()

	app := newTestApp(t, db)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req = req.WithContext(withTestSession(req.Context(), database.Session{Token: "tok", AccountId: 1}))

	rec := httptest.NewRecorder()
	app.listRooms(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var rooms []types.Room
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rooms))
	require.Len(t, rooms, 2)

	assert.Equal(t, 3, rooms[0].UnreadCount)
	assert.Equal(t, 0, rooms[1].UnreadCount)
	require.Len(t, rooms[1].Members, 2)
	assert.Equal(t, types.LangKorean, rooms[1].Members[0].NativeLanguage)

	db.AssertExpectations(t)
}

func TestGetMessages(t *testing.T) {
	t.Run("returns messages with translations attached", func(t *testing.T) {
		db := &database.MockLingoChatRepository{}
		db.On("GetRoomByExternalId", "roomabc").Return(database.Room{Id: 10, ExternalId: "roomabc"}, nil).Once()
		db.On("IsRoomMember", 1, 10).Return(true).Once()
		db.On("GetRoomMessages", 10, 0).Return([]database.Message{
			{MessageId: "m1", RoomId: 10, SenderId: 5, SenderUsername: "sam", OriginalText: "hello", OriginalLanguage: "en"},
		}, nil).Once()
		db.On("GetRoomTranslations", 10).Return([]database.Translation{
			{MessageId: "m1", TargetLanguage: "ko", TranslatedText: "안녕"},
			{MessageId: "m1", TargetLanguage: "es", TranslatedText: "hola"},
		}, nil).Once()

		app := newTestApp(t, db)

		req := httptest.NewRequest(http.MethodGet, "/api/messages?room_id=roomabc", nil)
		req = req.WithContext(withTestSession(req.Context(), database.Session{Token: "tok", AccountId: 1}))

		rec := httptest.NewRecorder()
		app.getMessages(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var messages []types.Message
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&messages))
		require.Len(t, messages, 1)

		assert.Equal(t, "roomabc", messages[0].RoomId)
		assert.Equal(t, "안녕", messages[0].Translations[types.LangKorean])
		assert.Equal(t, "hola", messages[0].Translations[types.LangSpanish])
		assert.Contains(t, messages[0].Highlights, types.LangKorean)

		db.AssertExpectations(t)
	})

	t.Run("non-members are forbidden", func(t *testing.T) {
		db := &database.MockLingoChatRepository{}
		db.On("GetRoomByExternalId", "roomabc").Return(database.Room{Id: 10, ExternalId: "roomabc"}, nil).Once()
		db.On("IsRoomMember", 2, 10).Return(false).Once()

		app := newTestApp(t, db)

		req := httptest.NewRequest(http.MethodGet, "/api/messages?room_id=roomabc", nil)
		req = req.WithContext(withTestSession(req.Context(), database.Session{Token: "tok", AccountId: 2}))

		rec := httptest.NewRecorder()
		app.getMessages(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		db.AssertNotCalled(t, "GetRoomMessages")
	})

	t.Run("missing room id", func(t *testing.T) {
		app := newTestApp(t, &database.MockLingoChatRepository{})

		req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
		req = req.WithContext(withTestSession(req.Context(), database.Session{Token: "tok", AccountId: 1}))

		rec := httptest.NewRecorder()
		app.getMessages(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
