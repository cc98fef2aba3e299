package database

import "time"

type Account struct {
	Id               int
	Username         string
	EmailAddress     string
	PasswordHash     string
	NativeLanguage   string
	LearningLanguage string
	CreatedAt        time.Time
}

type Session struct {
	Token            string
	AccountId        int
	Username         string
	NativeLanguage   string
	LearningLanguage string
	IsActive         bool
	LastSeen         time.Time
}

type Room struct {
	Id         int
	ExternalId string
	Name       string
	RoomType   string
	PairKey    string
	OwnerId    int
	CreatedAt  time.Time
	Members    []Account
}

type Message struct {
	MessageId        string
	RoomId           int
	SenderId         int
	SenderUsername   string
	OriginalText     string
	OriginalLanguage string
	CreatedAt        time.Time
}

type Translation struct {
	MessageId      string
	TargetLanguage string
	TranslatedText string
}

// ReadCount is the computed unread count for one message: room members
// minus the sender minus distinct readers, floored at zero.
type ReadCount struct {
	MessageId   string
	UnreadCount int
}

type CreateAccountParams struct {
	Username         string
	EmailAddress     string
	PasswordHash     string
	NativeLanguage   string
	LearningLanguage string
}

type CreateRoomParams struct {
	Name       string
	ExternalId string
	RoomType   string
	PairKey    string
	OwnerId    int
}
