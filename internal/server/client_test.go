package server

import (
	"testing"

	"github.com/lingochat/lingochat/internal/database"
	"github.com/lingochat/lingochat/internal/stats"
	"github.com/lingochat/lingochat/internal/testutil"
	"github.com/lingochat/lingochat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_queueMessage(t *testing.T) {
	c := &Client{
		log:  testutil.TestLogger(t),
		send: make(chan *ServerMessage, 1),
	}

	assert.True(t, c.queueMessage(NoErrOK(1, nil)))
	assert.False(t, c.queueMessage(NoErrOK(2, nil)), "full channel must not block")
}

func Test_addRoom_getRoom_delRoom(t *testing.T) {
	c := &Client{rooms: make(map[string]*Room)}
	r := &Room{externalId: "abc"}

	c.addRoom(r)
	assert.Equal(t, r, c.getRoom("abc"))
	assert.Nil(t, c.getRoom("missing"))

	c.delRoom("abc")
	assert.Nil(t, c.getRoom("abc"))
}

func Test_routeToRoom(t *testing.T) {
	cs := newTestChatServer(t, &database.MockLingoChatRepository{}, stats.NopStats{})

	t.Run("unknown room", func(t *testing.T) {
		c := &Client{
			chatServer: cs,
			log:        testutil.TestLogger(t),
			user:       types.User{Id: 1},
			send:       make(chan *ServerMessage, 1),
			rooms:      make(map[string]*Room),
		}

		c.routeToRoom(&ClientMessage{BaseMessage: BaseMessage{Id: 1}}, "nowhere")

		msg := <-c.send
		require.NotNil(t, msg.Response)
		assert.Equal(t, 404, msg.Response.ResponseCode)
	})

	t.Run("delivers to the joined room", func(t *testing.T) {
		r := &Room{externalId: "abc", clientMsgChan: make(chan *ClientMessage, 1)}
		c := &Client{
			chatServer: cs,
			log:        testutil.TestLogger(t),
			user:       types.User{Id: 1},
			send:       make(chan *ServerMessage, 1),
			rooms:      map[string]*Room{"abc": r},
		}

		msg := &ClientMessage{BaseMessage: BaseMessage{Id: 2}, Publish: &Publish{RoomId: "abc", Text: "hi"}}
		c.routeToRoom(msg, "abc")

		assert.Equal(t, msg, <-r.clientMsgChan)
	})

	t.Run("full room channel reports unavailable", func(t *testing.T) {
		r := &Room{externalId: "abc", clientMsgChan: make(chan *ClientMessage)}
		c := &Client{
			chatServer: cs,
			log:        testutil.TestLogger(t),
			user:       types.User{Id: 1},
			send:       make(chan *ServerMessage, 1),
			rooms:      map[string]*Room{"abc": r},
		}

		c.routeToRoom(&ClientMessage{BaseMessage: BaseMessage{Id: 3}}, "abc")

		msg := <-c.send
		require.NotNil(t, msg.Response)
		assert.Equal(t, 503, msg.Response.ResponseCode)
	})
}

func Test_leaveAllRooms(t *testing.T) {
	r := &Room{externalId: "abc", leaveChan: make(chan *ClientMessage, 1)}
	c := &Client{
		log:   testutil.TestLogger(t),
		user:  types.User{Id: 1},
		rooms: map[string]*Room{"abc": r},
	}

	c.leaveAllRooms()

	leave := <-r.leaveChan
	assert.Equal(t, c, leave.client)
	assert.Equal(t, 1, leave.UserId)
}
