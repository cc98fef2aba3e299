package database

import (
	"fmt"
	"time"
)

func (db *PgLingoChatRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, native_language, learning_language, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, username, email, native_language, learning_language, created_at",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		params.NativeLanguage,
		params.LearningLanguage,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.NativeLanguage,
		&a.LearningLanguage,
		&a.CreatedAt,
	)

	return a, err
}

func (db *PgLingoChatRepository) GetAccountById(accountId int) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, native_language, learning_language, created_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.NativeLanguage,
		&a.LearningLanguage,
		&a.CreatedAt,
	)

	return a, err
}

func (db *PgLingoChatRepository) GetAccountByEmail(email string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, native_language, learning_language, created_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.PasswordHash,
		&a.NativeLanguage,
		&a.LearningLanguage,
		&a.CreatedAt,
	)

	return a, err
}

func (db *PgLingoChatRepository) CreateSession(token string, accountId int) (Session, error) {
	res := db.conn.QueryRow(
		"INSERT INTO sessions (session_id, account_id, is_active, last_seen) "+
			"VALUES ($1, $2, TRUE, $3) RETURNING session_id, account_id, is_active, last_seen",
		token,
		accountId,
		time.Now().UTC(),
	)

	var s Session
	err := res.Scan(
		&s.Token,
		&s.AccountId,
		&s.IsActive,
		&s.LastSeen,
	)

	return s, err
}

func (db *PgLingoChatRepository) GetSessionByToken(token string) (Session, error) {
	row := db.conn.QueryRow(
		"SELECT s.session_id, s.account_id, s.is_active, s.last_seen, a.username, a.native_language, a.learning_language "+
			"FROM sessions s JOIN accounts a ON a.id = s.account_id "+
			"WHERE s.session_id = $1 LIMIT 1",
		token,
	)

	var s Session
	err := row.Scan(
		&s.Token,
		&s.AccountId,
		&s.IsActive,
		&s.LastSeen,
		&s.Username,
		&s.NativeLanguage,
		&s.LearningLanguage,
	)

	return s, err
}

func (db *PgLingoChatRepository) SetSessionActive(token string, active bool) error {
	_, err := db.conn.Exec(
		"UPDATE sessions SET is_active = $2, last_seen = $3 WHERE session_id = $1",
		token,
		active,
		time.Now().UTC(),
	)

	return err
}

func (db *PgLingoChatRepository) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE session_id = $1", token)

	return err
}

func (db *PgLingoChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO rooms (name, external_id, room_type, owner_id, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, name, external_id, room_type, owner_id, created_at",
		params.Name,
		params.ExternalId,
		params.RoomType,
		params.OwnerId,
		time.Now().UTC(),
	)

	var room Room
	err = res.Scan(
		&room.Id,
		&room.Name,
		&room.ExternalId,
		&room.RoomType,
		&room.OwnerId,
		&room.CreatedAt,
	)
	if err != nil {
		return Room{}, err
	}

	_, err = tx.Exec(
		"INSERT INTO room_members (room_id, account_id, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (room_id, account_id) DO NOTHING",
		room.Id,
		params.OwnerId,
		time.Now().UTC(),
	)
	if err != nil {
		return Room{}, err
	}

	if err = tx.Commit(); err != nil {
		return Room{}, err
	}

	return room, nil
}

// GetOrCreateDirectRoom inserts a direct room keyed by the unordered user
// pair. The conflicting no-op update makes RETURNING yield the existing
// row, so re-creation is idempotent regardless of argument order.
func (db *PgLingoChatRepository) GetOrCreateDirectRoom(params CreateRoomParams, memberA, memberB int) (Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO rooms (name, external_id, room_type, pair_key, owner_id, created_at) "+
			"VALUES ($1, $2, 'direct', $3, $4, $5) "+
			"ON CONFLICT (pair_key) DO UPDATE SET pair_key = EXCLUDED.pair_key "+
			"RETURNING id, name, external_id, room_type, pair_key, owner_id, created_at",
		params.Name,
		params.ExternalId,
		params.PairKey,
		params.OwnerId,
		time.Now().UTC(),
	)

	var room Room
	err = res.Scan(
		&room.Id,
		&room.Name,
		&room.ExternalId,
		&room.RoomType,
		&room.PairKey,
		&room.OwnerId,
		&room.CreatedAt,
	)
	if err != nil {
		return Room{}, err
	}

	for _, accountId := range []int{memberA, memberB} {
		_, err = tx.Exec(
			"INSERT INTO room_members (room_id, account_id, created_at) VALUES ($1, $2, $3) "+
				"ON CONFLICT (room_id, account_id) DO NOTHING",
			room.Id,
			accountId,
			time.Now().UTC(),
		)
		if err != nil {
			return Room{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Room{}, err
	}

	return room, nil
}

func (db *PgLingoChatRepository) GetRoomByExternalId(externalId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, room_type, owner_id, created_at FROM rooms "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.RoomType,
		&room.OwnerId,
		&room.CreatedAt,
	)

	return room, err
}

func (db *PgLingoChatRepository) AddRoomMember(accountId, roomId int) error {
	_, err := db.conn.Exec(
		"INSERT INTO room_members (room_id, account_id, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (room_id, account_id) DO NOTHING",
		roomId,
		accountId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgLingoChatRepository) IsRoomMember(accountId, roomId int) bool {
	res := db.conn.QueryRow(
		"SELECT 1 FROM room_members WHERE account_id = $1 AND room_id = $2 LIMIT 1",
		accountId,
		roomId,
	)

	var one int
	return res.Scan(&one) == nil
}

func (db *PgLingoChatRepository) ListRoomsForAccount(accountId int) ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT r.id, r.external_id, r.name, r.room_type, r.created_at "+
			"FROM room_members m JOIN rooms r ON r.id = m.room_id "+
			"WHERE m.account_id = $1 ORDER BY r.created_at",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err = rows.Scan(&room.Id, &room.ExternalId, &room.Name, &room.RoomType, &room.CreatedAt); err != nil {
			break
		}

		rooms = append(rooms, room)
	}
	if err != nil {
		return nil, err
	}

	for i := range rooms {
		if rooms[i].Members, err = db.roomMembers(rooms[i].Id); err != nil {
			return nil, err
		}
	}

	return rooms, nil
}

func (db *PgLingoChatRepository) roomMembers(roomId int) ([]Account, error) {
	rows, err := db.conn.Query(
		"SELECT a.id, a.username, a.native_language, a.learning_language "+
			"FROM room_members m JOIN accounts a ON a.id = m.account_id "+
			"WHERE m.room_id = $1 ORDER BY a.username",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Account
	for rows.Next() {
		var a Account
		if err = rows.Scan(&a.Id, &a.Username, &a.NativeLanguage, &a.LearningLanguage); err != nil {
			break
		}

		members = append(members, a)
	}

	return members, err
}

func (db *PgLingoChatRepository) RoomMemberCount(roomId int) (int, error) {
	row := db.conn.QueryRow("SELECT COUNT(*) FROM room_members WHERE room_id = $1", roomId)

	var count int
	err := row.Scan(&count)

	return count, err
}

func (db *PgLingoChatRepository) CreateMessage(msg Message) error {
	_, err := db.conn.Exec(
		"INSERT INTO messages (message_id, room_id, sender_id, sender_username, original_text, original_language, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7)",
		msg.MessageId,
		msg.RoomId,
		msg.SenderId,
		msg.SenderUsername,
		msg.OriginalText,
		msg.OriginalLanguage,
		msg.CreatedAt,
	)

	return err
}

// GetRoomMessages returns the most recent limit messages in creation
// order, oldest first.
func (db *PgLingoChatRepository) GetRoomMessages(roomId, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 200
	}

	rows, err := db.conn.Query(
		"SELECT message_id, room_id, sender_id, sender_username, original_text, original_language, created_at FROM ("+
			"SELECT message_id, room_id, sender_id, sender_username, original_text, original_language, created_at "+
			"FROM messages WHERE room_id = $1 ORDER BY created_at DESC LIMIT $2"+
			") recent ORDER BY created_at ASC",
		roomId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.MessageId, &msg.RoomId, &msg.SenderId, &msg.SenderUsername,
			&msg.OriginalText, &msg.OriginalLanguage, &msg.CreatedAt); err != nil {
			break
		}

		messages = append(messages, msg)
	}

	return messages, err
}

// CreateTranslations persists each (message, language) pair, ignoring
// conflicts so concurrent completions of the same pair are no-ops.
func (db *PgLingoChatRepository) CreateTranslations(messageId string, translations map[string]string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for lang, text := range translations {
		_, err = tx.Exec(
			"INSERT INTO translations (message_id, target_language, translated_text, created_at) "+
				"VALUES ($1, $2, $3, $4) ON CONFLICT (message_id, target_language) DO NOTHING",
			messageId,
			lang,
			text,
			time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert translation %s/%s: %w", messageId, lang, err)
		}
	}

	return tx.Commit()
}

func (db *PgLingoChatRepository) GetRoomTranslations(roomId int) ([]Translation, error) {
	rows, err := db.conn.Query(
		"SELECT t.message_id, t.target_language, t.translated_text "+
			"FROM translations t JOIN messages m ON m.message_id = t.message_id "+
			"WHERE m.room_id = $1",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var translations []Translation
	for rows.Next() {
		var tr Translation
		if err = rows.Scan(&tr.MessageId, &tr.TargetLanguage, &tr.TranslatedText); err != nil {
			break
		}

		translations = append(translations, tr)
	}

	return translations, err
}

// MarkRoomRead inserts a receipt for every message in the room authored
// by someone else. Conflicts on (message, account) are no-ops.
func (db *PgLingoChatRepository) MarkRoomRead(roomId, accountId int) error {
	_, err := db.conn.Exec(
		"INSERT INTO read_receipts (room_id, message_id, account_id, created_at) "+
			"SELECT m.room_id, m.message_id, $2, $3 FROM messages m "+
			"WHERE m.room_id = $1 AND m.sender_id <> $2 "+
			"ON CONFLICT (message_id, account_id) DO NOTHING",
		roomId,
		accountId,
		time.Now().UTC(),
	)

	return err
}

// GetReadUpdates recomputes the unread count for every message in the
// room. The sender is excluded from the denominator.
func (db *PgLingoChatRepository) GetReadUpdates(roomId int) ([]ReadCount, error) {
	rows, err := db.conn.Query(
		"SELECT m.message_id, GREATEST(0, "+
			"(SELECT COUNT(*) FROM room_members rm WHERE rm.room_id = m.room_id) - 1 - "+
			"(SELECT COUNT(DISTINCT rr.account_id) FROM read_receipts rr WHERE rr.message_id = m.message_id)"+
			") FROM messages m WHERE m.room_id = $1 ORDER BY m.created_at ASC",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ReadCount
	for rows.Next() {
		var rc ReadCount
		if err = rows.Scan(&rc.MessageId, &rc.UnreadCount); err != nil {
			break
		}

		counts = append(counts, rc)
	}

	return counts, err
}

// UnreadCountForAccount returns how many messages from other members the
// account has no receipt for.
func (db *PgLingoChatRepository) UnreadCountForAccount(roomId, accountId int) (int, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM messages m "+
			"WHERE m.room_id = $1 AND m.sender_id <> $2 AND NOT EXISTS "+
			"(SELECT 1 FROM read_receipts rr WHERE rr.message_id = m.message_id AND rr.account_id = $2)",
		roomId,
		accountId,
	).Scan(&count)

	return count, err
}
