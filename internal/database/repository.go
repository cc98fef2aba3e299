package database

// LingoChatRepository is the persistence gateway. Implementations must
// make conflicting inserts of the same (message, language) translation or
// (message, account) read receipt idempotent: multiple devices or retries
// can race on those paths.
type LingoChatRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (Account, error)
	GetAccountById(accountId int) (Account, error)
	GetAccountByEmail(email string) (Account, error)
	CreateSession(token string, accountId int) (Session, error)
	GetSessionByToken(token string) (Session, error)
	SetSessionActive(token string, active bool) error
	DeleteSession(token string) error
	CreateRoom(params CreateRoomParams) (Room, error)
	GetOrCreateDirectRoom(params CreateRoomParams, memberA, memberB int) (Room, error)
	GetRoomByExternalId(externalId string) (Room, error)
	AddRoomMember(accountId, roomId int) error
	IsRoomMember(accountId, roomId int) bool
	ListRoomsForAccount(accountId int) ([]Room, error)
	RoomMemberCount(roomId int) (int, error)
	CreateMessage(msg Message) error
	GetRoomMessages(roomId, limit int) ([]Message, error)
	CreateTranslations(messageId string, translations map[string]string) error
	GetRoomTranslations(roomId int) ([]Translation, error)
	MarkRoomRead(roomId, accountId int) error
	GetReadUpdates(roomId int) ([]ReadCount, error)
	UnreadCountForAccount(roomId, accountId int) (int, error)
}
