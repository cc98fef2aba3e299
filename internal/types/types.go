package types

import (
	"time"
)

// Language is one of the closed set of languages the service translates
// between.
type Language string

const (
	LangKorean  Language = "ko"
	LangEnglish Language = "en"
	LangSpanish Language = "es"
)

// SupportedLanguages lists every language the service handles. Translation
// targets for a message are all entries except the message's original
// language.
var SupportedLanguages = []Language{LangKorean, LangEnglish, LangSpanish}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	for _, lang := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// TargetLanguagesFor returns every supported language except source.
func TargetLanguagesFor(source Language) []Language {
	targets := make([]Language, 0, len(SupportedLanguages)-1)
	for _, lang := range SupportedLanguages {
		if lang != source {
			targets = append(targets, lang)
		}
	}
	return targets
}

type User struct {
	Id               int       `json:"id"`
	Username         string    `json:"username"`
	EmailAddress     string    `json:"email_address,omitempty"`
	NativeLanguage   Language  `json:"native_language"`
	LearningLanguage Language  `json:"learning_language"`
	Password         string    `json:"-"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
}

const (
	RoomTypeGroup  = "group"
	RoomTypeDirect = "direct"
)

type Room struct {
	Id          int       `json:"id"`
	ExternalId  string    `json:"external_id"`
	Name        string    `json:"name"`
	RoomType    string    `json:"room_type"`
	Members     []User    `json:"members,omitempty"`
	UnreadCount int       `json:"unread_count"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Message is immutable once created. Translations are attached after the
// fact; their absence means "not yet translated", never a terminal error.
type Message struct {
	MessageId        string              `json:"message_id"`
	RoomId           string              `json:"room_id"`
	SenderUserId     int                 `json:"sender_user_id"`
	SenderUsername   string              `json:"sender_username"`
	OriginalText     string              `json:"original_text"`
	OriginalLanguage Language            `json:"original_language"`
	CreatedAt        time.Time           `json:"created_at"`
	Translations     map[Language]string `json:"translations,omitempty"`
	Highlights       map[Language]Span   `json:"highlights,omitempty"`
}

// Span is a half-open [Start, End) range of text units (runes, not bytes)
// into a translated string.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ReadUpdate reports the current unread count for a single message:
// members minus sender minus distinct readers, floored at zero.
type ReadUpdate struct {
	MessageId   string `json:"message_id"`
	UnreadCount int    `json:"unread_count"`
}
