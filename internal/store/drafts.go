package store

import (
	"context"
	"database/sql"
	"fmt"

	"tweetqueue/internal/queue"
)

const draftColumns = "id, seq, text, state, position, external_id, failure_reason, failure_detail, attempts, created_at, updated_at, published_at"

func (s *Store) loadItems(ctx context.Context) ([]queue.Item, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+draftColumns+" FROM drafts ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	var items []queue.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drafts: %w", err)
	}
	return items, nil
}

func writeItems(ctx context.Context, tx *sql.Tx, items []queue.Item) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM drafts"); err != nil {
		return fmt.Errorf("clear drafts: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO drafts ("+draftColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare draft insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		var position any
		if item.State == queue.StateQueued {
			position = item.Position
		}
		if _, err := stmt.ExecContext(ctx,
			item.ID,
			item.Seq,
			item.Text,
			string(item.State),
			position,
			nullableString(item.ExternalID),
			nullableString(string(item.FailureReason)),
			nullableString(item.FailureDetail),
			item.Attempts,
			formatTime(item.CreatedAt),
			formatTime(item.UpdatedAt),
			nullableTime(item.PublishedAt),
		); err != nil {
			return fmt.Errorf("insert draft %s: %w", item.ID, err)
		}
	}
	return nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (queue.Item, error) {
	var (
		item          queue.Item
		state         string
		position      sql.NullInt64
		externalID    sql.NullString
		failureReason sql.NullString
		failureDetail sql.NullString
		createdRaw    string
		updatedRaw    string
		publishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&item.ID,
		&item.Seq,
		&item.Text,
		&state,
		&position,
		&externalID,
		&failureReason,
		&failureDetail,
		&item.Attempts,
		&createdRaw,
		&updatedRaw,
		&publishedRaw,
	); err != nil {
		return queue.Item{}, err
	}

	parsed, ok := queue.ParseState(state)
	if !ok {
		return queue.Item{}, fmt.Errorf("draft %s has unknown state %q", item.ID, state)
	}
	item.State = parsed
	item.Position = -1
	if position.Valid {
		item.Position = int(position.Int64)
	}
	item.ExternalID = externalID.String
	item.FailureReason = queue.FailureReason(failureReason.String)
	item.FailureDetail = failureDetail.String
	item.CreatedAt = parseTimeString(createdRaw)
	item.UpdatedAt = parseTimeString(updatedRaw)
	if publishedRaw.Valid {
		item.PublishedAt = parseTimeString(publishedRaw.String)
	}
	return item, nil
}
