package database

import (
	"github.com/stretchr/testify/mock"
)

type MockLingoChatRepository struct {
	mock.Mock
}

func (m *MockLingoChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockLingoChatRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockLingoChatRepository) GetAccountById(accountId int) (Account, error) {
	args := m.Called(accountId)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockLingoChatRepository) GetAccountByEmail(email string) (Account, error) {
	args := m.Called(email)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockLingoChatRepository) CreateSession(token string, accountId int) (Session, error) {
	args := m.Called(token, accountId)
	return args.Get(0).(Session), args.Error(1)
}
func (m *MockLingoChatRepository) GetSessionByToken(token string) (Session, error) {
	args := m.Called(token)
	return args.Get(0).(Session), args.Error(1)
}
func (m *MockLingoChatRepository) SetSessionActive(token string, active bool) error {
	args := m.Called(token, active)
	return args.Error(0)
}
func (m *MockLingoChatRepository) DeleteSession(token string) error {
	args := m.Called(token)
	return args.Error(0)
}
func (m *MockLingoChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockLingoChatRepository) GetOrCreateDirectRoom(params CreateRoomParams, memberA, memberB int) (Room, error) {
	args := m.Called(params, memberA, memberB)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockLingoChatRepository) GetRoomByExternalId(externalId string) (Room, error) {
	args := m.Called(externalId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockLingoChatRepository) AddRoomMember(accountId, roomId int) error {
	args := m.Called(accountId, roomId)
	return args.Error(0)
}
func (m *MockLingoChatRepository) IsRoomMember(accountId, roomId int) bool {
	args := m.Called(accountId, roomId)
	return args.Bool(0)
}
func (m *MockLingoChatRepository) ListRoomsForAccount(accountId int) ([]Room, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Room), args.Error(1)
}
func (m *MockLingoChatRepository) RoomMemberCount(roomId int) (int, error) {
	args := m.Called(roomId)
	return args.Int(0), args.Error(1)
}
func (m *MockLingoChatRepository) CreateMessage(msg Message) error {
	args := m.Called(msg)
	return args.Error(0)
}
func (m *MockLingoChatRepository) GetRoomMessages(roomId, limit int) ([]Message, error) {
	args := m.Called(roomId, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockLingoChatRepository) CreateTranslations(messageId string, translations map[string]string) error {
	args := m.Called(messageId, translations)
	return args.Error(0)
}
func (m *MockLingoChatRepository) GetRoomTranslations(roomId int) ([]Translation, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Translation), args.Error(1)
}
func (m *MockLingoChatRepository) MarkRoomRead(roomId, accountId int) error {
	args := m.Called(roomId, accountId)
	return args.Error(0)
}
func (m *MockLingoChatRepository) GetReadUpdates(roomId int) ([]ReadCount, error) {
	args := m.Called(roomId)
	return args.Get(0).([]ReadCount), args.Error(1)
}
func (m *MockLingoChatRepository) UnreadCountForAccount(roomId, accountId int) (int, error) {
	args := m.Called(roomId, accountId)
	return args.Int(0), args.Error(1)
}
