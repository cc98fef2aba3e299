package server

import (
	"net/http"
	"time"

	"github.com/lingochat/lingochat/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the tagged union of client-initiated events. Exactly
// one of Join, Publish or Read is set; payloads are validated at this
// boundary so room logic only sees well-formed input.
type ClientMessage struct {
	BaseMessage
	Join    *Join    `json:"join,omitempty"`
	Publish *Publish `json:"publish,omitempty"`
	Read    *Read    `json:"read,omitempty"`
	UserId  int      `json:"-"`
	client  *Client  `json:"-"`
}

func (cm *ClientMessage) GetUserId() int {
	if cm.UserId != 0 {
		return cm.UserId
	}

	if cm.client != nil {
		return cm.client.user.Id
	}

	return 0
}

type Join struct {
	RoomId string `json:"room_id"`
}

type Publish struct {
	RoomId string `json:"room_id"`
	Text   string `json:"text"`
}

type Read struct {
	RoomId string `json:"room_id"`
}

// ServerMessage is the tagged union of server-push events and responses.
type ServerMessage struct {
	BaseMessage
	Response     *Response          `json:"response,omitempty"`
	Message      *types.Message     `json:"message,omitempty"`
	History      []types.Message    `json:"history,omitempty"`
	Translations *TranslationsReady `json:"translations,omitempty"`
	ReadUpdate   *ReadUpdateEvent   `json:"read_update,omitempty"`
	SkipClient   *Client            `json:"-"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// TranslationsReady carries every translation that became available for
// one message in a single event. Languages that failed are simply absent.
type TranslationsReady struct {
	MessageId    string                        `json:"message_id"`
	RoomId       string                        `json:"room_id"`
	Translations map[types.Language]string     `json:"translations"`
	Highlights   map[types.Language]types.Span `json:"highlights"`
}

type ReadUpdateEvent struct {
	RoomId  string             `json:"room_id"`
	Updates []types.ReadUpdate `json:"updates"`
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func ErrValidation(id int, reason string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        reason,
		},
	}
}

func ErrUnauthorized(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusUnauthorized,
			Error:        "unauthorized",
		},
	}
}

func ErrRateLimited(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusTooManyRequests,
			Error:        "rate limit exceeded",
		},
	}
}

func ErrRoomNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "room not found",
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
