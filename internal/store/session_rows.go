package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tweetqueue/internal/session"
)

func (s *Store) loadSession(ctx context.Context) (*session.Session, error) {
	var (
		userID     sql.NullString
		token      sql.NullString
		status     string
		reason     sql.NullString
		expiresRaw sql.NullString
		updatedRaw string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, token, status, reason, expires_at, updated_at FROM session WHERE id = 1",
	).Scan(&userID, &token, &status, &reason, &expiresRaw, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	parsed, ok := session.ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("session has unknown status %q", status)
	}
	sess := &session.Session{
		UserID:    userID.String,
		Token:     token.String,
		Status:    parsed,
		Reason:    reason.String,
		UpdatedAt: parseTimeString(updatedRaw),
	}
	if expiresRaw.Valid {
		sess.ExpiresAt = parseTimeString(expiresRaw.String)
	}
	return sess, nil
}

func writeSession(ctx context.Context, tx *sql.Tx, sess *session.Session) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM session"); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if sess == nil {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO session (id, user_id, token, status, reason, expires_at, updated_at) VALUES (1, ?, ?, ?, ?, ?, ?)",
		nullableString(sess.UserID),
		nullableString(sess.Token),
		string(sess.Status),
		nullableString(sess.Reason),
		nullableTime(sess.ExpiresAt),
		formatTime(sess.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}
