package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lingochat/lingochat/internal/database"
	"github.com/lingochat/lingochat/internal/stats"
	"github.com/lingochat/lingochat/internal/translation"
)

// Stat names published by the chat server.
const (
	StatNumConnections  = "NumConnections"
	StatNumActiveRooms  = "NumActiveRooms"
	StatNumMessages     = "NumMessages"
	StatNumTranslations = "NumTranslations"
	StatNumRateLimited  = "NumRateLimited"
)

func StatNames() []string {
	return []string{
		StatNumConnections,
		StatNumActiveRooms,
		StatNumMessages,
		StatNumTranslations,
		StatNumRateLimited,
	}
}

// ChatServer owns the room registry and the connection lifecycle. Rooms
// are loaded on first join and unloaded after sitting idle; the rooms
// map is touched only by the Run goroutine.
type ChatServer struct {
	log                *log.Logger
	db                 database.LingoChatRepository
	stats              stats.StatsUpdater
	translator         translation.Translator
	limiter            *RateLimiter
	translationTimeout time.Duration

	clients     map[*Client]struct{}
	clientsLock sync.Mutex

	// sessionConns counts open connections per session token. A session
	// is marked active on 0 to 1 and inactive on 1 to 0, so refreshes
	// and multiple tabs don't flap the flag.
	sessionConns map[string]int
	sessionLock  sync.Mutex

	joinChan       chan *ClientMessage
	unloadRoomChan chan string
	rooms          map[string]*Room

	stop chan struct{}
	done chan struct{}
}

func NewChatServer(db database.LingoChatRepository, translator translation.Translator,
	limiter *RateLimiter, su stats.StatsUpdater, translationTimeout time.Duration, l *log.Logger) *ChatServer {

	return &ChatServer{
		log:                l,
		db:                 db,
		stats:              su,
		translator:         translator,
		limiter:            limiter,
		translationTimeout: translationTimeout,
		clients:            make(map[*Client]struct{}),
		sessionConns:       make(map[string]int),
		joinChan:           make(chan *ClientMessage, 256),
		unloadRoomChan:     make(chan string, 16),
		rooms:              make(map[string]*Room),
		stop:               make(chan struct{}),
		done:               make(chan struct{}),
	}
}

func (cs *ChatServer) Run() {
	go func() {
		defer close(cs.done)

		for {
			select {
			case join := <-cs.joinChan:
				cs.handleJoin(join)
			case externalId := <-cs.unloadRoomChan:
				cs.unloadRoom(externalId)
			case <-cs.stop:
				cs.unloadAllRooms()
				return
			}
		}
	}()
}

// handleJoin resolves the target room, loading its actor if it isn't
// resident, and hands the join over to it.
func (cs *ChatServer) handleJoin(join *ClientMessage) {
	roomId := join.Join.RoomId

	room, ok := cs.rooms[roomId]
	if !ok {
		dbRoom, err := cs.db.GetRoomByExternalId(roomId)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				join.client.queueMessage(ErrRoomNotFound(join.Id))
			} else {
				cs.log.Println("GetRoomByExternalId:", err)
				join.client.queueMessage(ErrInternalError(join.Id))
			}
			return
		}

		room = cs.loadRoom(dbRoom)
	}

	select {
	case room.joinChan <- join:
	default:
		cs.log.Printf("joinChan full for room %q", room.externalId)
		join.client.queueMessage(ErrServiceUnavailable(join.Id))
	}
}

func (cs *ChatServer) loadRoom(dbRoom database.Room) *Room {
	room := &Room{
		id:            dbRoom.Id,
		externalId:    dbRoom.ExternalId,
		cs:            cs,
		joinChan:      make(chan *ClientMessage, 256),
		leaveChan:     make(chan *ClientMessage, 256),
		clientMsgChan: make(chan *ClientMessage, 256),
		clients:       make(map[*Client]struct{}),
		userMap:       make(map[int]map[*Client]struct{}),
		log:           cs.log,
		exit:          make(chan exitReq),
	}

	cs.rooms[dbRoom.ExternalId] = room
	cs.stats.Incr(StatNumActiveRooms)

	go room.start()

	return room
}

func (cs *ChatServer) unloadRoom(externalId string) {
	room, ok := cs.rooms[externalId]
	if !ok {
		return
	}

	done := make(chan string)
	room.exit <- exitReq{done: done}
	<-done

	delete(cs.rooms, externalId)
	cs.stats.Decr(StatNumActiveRooms)
	cs.log.Printf("unloaded room %q", externalId)
}

func (cs *ChatServer) unloadAllRooms() {
	for externalId := range cs.rooms {
		cs.unloadRoom(externalId)
	}
}

// RegisterClient tracks the connection and marks its session active on
// the session's first open connection.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.clientsLock.Lock()
	cs.clients[c] = struct{}{}
	cs.clientsLock.Unlock()

	cs.stats.Incr(StatNumConnections)

	cs.sessionLock.Lock()
	defer cs.sessionLock.Unlock()

	cs.sessionConns[c.sessionToken]++
	if cs.sessionConns[c.sessionToken] == 1 {
		if err := cs.db.SetSessionActive(c.sessionToken, true); err != nil {
			cs.log.Println("SetSessionActive:", err)
		}
	}
}

// DeregisterClient drops the connection and marks its session inactive
// once no connections remain for it.
func (cs *ChatServer) DeregisterClient(c *Client) {
	cs.clientsLock.Lock()
	if _, ok := cs.clients[c]; !ok {
		cs.clientsLock.Unlock()
		return
	}
	delete(cs.clients, c)
	cs.clientsLock.Unlock()

	cs.stats.Decr(StatNumConnections)

	cs.sessionLock.Lock()
	defer cs.sessionLock.Unlock()

	cs.sessionConns[c.sessionToken]--
	if cs.sessionConns[c.sessionToken] <= 0 {
		delete(cs.sessionConns, c.sessionToken)
		if err := cs.db.SetSessionActive(c.sessionToken, false); err != nil {
			cs.log.Println("SetSessionActive:", err)
		}
	}
}

// Shutdown stops the run loop, unloading every resident room, and then
// closes all remaining connections.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	close(cs.stop)

	select {
	case <-cs.done:
	case <-ctx.Done():
		return fmt.Errorf("chat server shutdown: %w", ctx.Err())
	}

	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	for c := range cs.clients {
		c.conn.Close()
	}

	return nil
}
