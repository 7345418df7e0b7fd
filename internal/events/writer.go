package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Writer appends audit events inside the caller's transaction so the event
// commits or rolls back with the change it records.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, businessID, entityType, entityID, action, actor string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(business_id,entity_type,entity_id,action,actor,payload,created_at) VALUES (?,?,?,?,?,?,?)`,
		businessID, entityType, entityID, action, nullable(actor), string(data), ts)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
