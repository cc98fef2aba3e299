package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lingochat/lingochat/internal/database"
	"github.com/lingochat/lingochat/internal/translation"
	"github.com/lingochat/lingochat/internal/types"
	"github.com/samber/lo"
)

const (
	idleRoomTimeout = 5 * time.Minute
	historyLimit    = 200

	// maxMessageLength is a rune count, not bytes.
	maxMessageLength = 500
)

type exitReq struct {
	done chan string
}

// Room is an actor owning all state for one chat room. Every join, leave,
// publish and read for the room is serialized through its channels, so
// message fan-out preserves arrival order.
type Room struct {
	id            int
	externalId    string
	cs            *ChatServer
	joinChan      chan *ClientMessage
	leaveChan     chan *ClientMessage
	clientMsgChan chan *ClientMessage
	clients       map[*Client]struct{}
	userMap       map[int]map[*Client]struct{}
	clientLock    sync.RWMutex
	log           *log.Logger
	// killTimer unloads the room once no connections remain.
	killTimer *time.Timer
	exit      chan exitReq
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.externalId)
	r.killTimer = time.NewTimer(idleRoomTimeout)
	r.killTimer.Stop()

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case leaveMsg := <-r.leaveChan:
			r.handleLeave(leaveMsg)
		case msg := <-r.clientMsgChan:
			if msg.Publish != nil {
				r.handlePublish(msg)
			} else if msg.Read != nil {
				r.handleRead(msg)
			}
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case e := <-r.exit:
			r.handleRoomExit(e)
			return
		}
	}
}

func (r *Room) handleRoomTimeout() {
	r.log.Printf("room %q timed out", r.externalId)
	select {
	case r.cs.unloadRoomChan <- r.externalId:
	default:
		// server busy, try again next idle period
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) handleRoomExit(e exitReq) {
	r.log.Printf("room %q is exiting", r.externalId)

	r.clientLock.Lock()
	for c := range r.clients {
		c.delRoom(r.externalId)
	}
	clear(r.clients)
	r.clientLock.Unlock()

	if e.done != nil {
		e.done <- r.externalId
	}
}

// handleJoin subscribes the connection, replays history and recomputes
// read state. Joining is idempotent: membership is an upsert and history
// is replayed, not duplicated.
func (r *Room) handleJoin(join *ClientMessage) {
	r.killTimer.Stop()

	c := join.client
	if c == nil || join.GetUserId() == 0 {
		if c != nil {
			c.queueMessage(ErrUnauthorized(join.Id))
		}
		return
	}

	if err := r.cs.db.AddRoomMember(c.user.Id, r.id); err != nil {
		r.log.Println("AddRoomMember:", err)
		if len(r.clients) == 0 {
			r.killTimer.Reset(idleRoomTimeout)
		}
		c.queueMessage(ErrInternalError(join.Id))
		return
	}

	r.addClient(c)

	c.queueMessage(NoErrOK(join.Id, map[string]any{"room_id": r.externalId}))

	history, err := r.loadHistory()
	if err != nil {
		r.log.Println("load history:", err)
	} else {
		c.queueMessage(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			History:     history,
		})
	}

	// joining implies the member has seen the room
	if err := r.cs.db.MarkRoomRead(r.id, c.user.Id); err != nil {
		r.log.Println("MarkRoomRead:", err)
		return
	}
	r.broadcastReadUpdates()
}

// loadHistory returns the recent messages oldest-first with any stored
// translations and their highlight spans attached.
func (r *Room) loadHistory() ([]types.Message, error) {
	dbMsgs, err := r.cs.db.GetRoomMessages(r.id, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("get room messages: %w", err)
	}

	dbTranslations, err := r.cs.db.GetRoomTranslations(r.id)
	if err != nil {
		return nil, fmt.Errorf("get room translations: %w", err)
	}

	byMessage := make(map[string][]database.Translation)
	for _, tr := range dbTranslations {
		byMessage[tr.MessageId] = append(byMessage[tr.MessageId], tr)
	}

	history := lo.Map(dbMsgs, func(m database.Message, _ int) types.Message {
		msg := types.Message{
			MessageId:        m.MessageId,
			RoomId:           r.externalId,
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

	return history, nil
}

func (r *Room) handleLeave(leaveMsg *ClientMessage) {
	r.removeClient(leaveMsg.client)
}

// handlePublish validates, persists and fans out one message, then kicks
// off translation. The message is broadcast before translation is even
// attempted: translation is never on the delivery path.
func (r *Room) handlePublish(msg *ClientMessage) {
	c := msg.client
	if c == nil || msg.GetUserId() == 0 {
		if c != nil {
			c.queueMessage(ErrUnauthorized(msg.Id))
		}
		return
	}

	text := msg.Publish.Text
	if strings.TrimSpace(text) == "" {
		c.queueMessage(ErrValidation(msg.Id, "empty message"))
		return
	}

	if utf8.RuneCountInString(text) > maxMessageLength {
		c.queueMessage(ErrValidation(msg.Id, fmt.Sprintf("message too long (max %d characters)", maxMessageLength)))
		return
	}

	if !r.cs.limiter.Allow(c.user.Id) {
		r.cs.stats.Incr(StatNumRateLimited)
		c.queueMessage(ErrRateLimited(msg.Id))
		return
	}

	if err := r.cs.db.AddRoomMember(c.user.Id, r.id); err != nil {
		r.log.Println("AddRoomMember:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	message := types.Message{
		MessageId:        uuid.NewString(),
		RoomId:           r.externalId,
		SenderUserId:     c.user.Id,
		SenderUsername:   c.user.Username,
		OriginalText:     text,
		OriginalLanguage: c.user.NativeLanguage,
		CreatedAt:        msg.Timestamp,
	}

	if err := r.cs.db.CreateMessage(database.Message{
		MessageId:        message.MessageId,
		RoomId:           r.id,
		SenderId:         message.SenderUserId,
		SenderUsername:   message.SenderUsername,
		OriginalText:     message.OriginalText,
		OriginalLanguage: string(message.OriginalLanguage),
		CreatedAt:        message.CreatedAt,
	}); err != nil {
		r.log.Println("error saving message:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	r.cs.stats.Incr(StatNumMessages)

	c.queueMessage(NoErrOK(msg.Id, map[string]any{"message": message}))

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Id:        msg.Id,
			Timestamp: msg.Timestamp,
		},
		Message: &message,
	})

	// broadcast happened above; translation completes on its own time
	go r.translateAndBroadcast(message)
}

// translateAndBroadcast asks the translation gateway for every target
// language, persists whatever succeeded and pushes a single
// translations-ready event. Failures are logged and dropped: the message
// simply never acquires those languages, and clients treat absence as
// "not yet translated". Runs detached from the sending connection, so a
// disconnect does not cancel it.
func (r *Room) translateAndBroadcast(msg types.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cs.translationTimeout)
	defer cancel()

	results, err := r.cs.translator.Translate(ctx, msg.OriginalText, msg.OriginalLanguage)
	if err != nil {
		r.log.Printf("translate message %s: %v", msg.MessageId, err)
		return
	}

	stored := make(map[string]string, len(results))
	for lang, text := range results {
		stored[string(lang)] = text
	}

	if err := r.cs.db.CreateTranslations(msg.MessageId, stored); err != nil {
		// best effort: deliver to connected clients anyway
		r.log.Printf("save translations for message %s: %v", msg.MessageId, err)
	}

	highlights := make(map[types.Language]types.Span, len(results))
	for lang, text := range results {
		highlights[lang] = translation.SelectHighlight(text)
	}

	r.cs.stats.Incr(StatNumTranslations)

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Translations: &TranslationsReady{
			MessageId:    msg.MessageId,
			RoomId:       r.externalId,
			Translations: results,
			Highlights:   highlights,
		},
	})
}

// handleRead records receipts for every message the user hasn't read,
// then rebroadcasts the recomputed unread counts for the whole room.
// Receipt writes are best effort: a failure is logged, the ack still
// goes out, and counts are simply not rebroadcast since nothing changed.
func (r *Room) handleRead(msg *ClientMessage) {
	c := msg.client
	if c == nil || msg.GetUserId() == 0 {
		if c != nil {
			c.queueMessage(ErrUnauthorized(msg.Id))
		}
		return
	}

	err := r.cs.db.MarkRoomRead(r.id, c.user.Id)
	if err != nil {
		r.log.Println("MarkRoomRead:", err)
	}

	c.queueMessage(NoErrOK(msg.Id, nil))

	if err == nil {
		r.broadcastReadUpdates()
	}
}

func (r *Room) broadcastReadUpdates() {
	counts, err := r.cs.db.GetReadUpdates(r.id)
	if err != nil {
		r.log.Println("GetReadUpdates:", err)
		return
	}

	updates := lo.Map(counts, func(rc database.ReadCount, _ int) types.ReadUpdate {
		return types.ReadUpdate{MessageId: rc.MessageId, UnreadCount: rc.UnreadCount}
	})

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		ReadUpdate: &ReadUpdateEvent{
			RoomId:  r.externalId,
			Updates: updates,
		},
	})
}

func (r *Room) addClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
	if r.userMap[c.user.Id] == nil {
		r.userMap[c.user.Id] = make(map[*Client]struct{})
	}
	r.userMap[c.user.Id][c] = struct{}{}

	c.addRoom(r)
}

func (r *Room) removeClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if _, ok := r.clients[c]; !ok {
		return
	}

	delete(r.clients, c)
	c.delRoom(r.externalId)

	if userClients, ok := r.userMap[c.user.Id]; ok {
		delete(userClients, c)
		if len(userClients) == 0 {
			delete(r.userMap, c.user.Id)
		}
	}

	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.externalId)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

// broadcast fans out one event to every connection subscribed to the
// room, the sender's included. Safe to call from outside the room
// goroutine (translation completions do).
func (r *Room) broadcast(msg *ServerMessage) {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	for client := range r.clients {
		if client == msg.SkipClient {
			continue
		}

		client.queueMessage(msg)
	}
}
