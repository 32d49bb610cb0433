package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendervault/tendervault/internal/audit"
)

type AuditStore struct {
	db *pgxpool.Pool
}

func NewAuditStore(db *pgxpool.Pool) *AuditStore { return &AuditStore{db: db} }

func (s *AuditStore) InsertEvent(ctx context.Context, ev audit.Event) error {
	var metadata []byte
	if len(ev.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(ev.Metadata)
		if err != nil {
			return err
		}
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO audit_events(audit_id, ts, user_id, user_role, action, tender_id, file_key, version_id,
                         ip_address, user_agent, result, metadata, retention_expiry)
VALUES($1, $2, $3, $4, $5, nullif($6,''), nullif($7,''), nullif($8,''), $9, $10, $11, $12, $13)`,
		ev.AuditID, ev.Timestamp, ev.UserID, ev.UserRole, ev.Action, ev.TenderID, ev.FileKey, ev.VersionID,
		ev.IPAddress, ev.UserAgent, ev.Result, metadata, ev.RetentionExpiry)
	return err
}

// pageKey is the keyset cursor serialized into the opaque continuation
// token. Callers only ever see the base64 form.
type pageKey struct {
	TS      time.Time `json:"ts"`
	AuditID string    `json:"auditId"`
}

func encodeToken(k pageKey) string {
	b, _ := json.Marshal(k)
	return base64.StdEncoding.EncodeToString(b)
}

func decodeToken(token string) (pageKey, error) {
	var k pageKey
	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return k, err
	}
	if err := json.Unmarshal(b, &k); err != nil {
		return k, err
	}
	if k.AuditID == "" || k.TS.IsZero() {
		return k, fmt.Errorf("incomplete page key")
	}
	return k, nil
}

var ErrBadToken = fmt.Errorf("store: invalid continuation token")

// List returns a page of audit events, newest first, plus the continuation
// token for the next page ("" when exhausted).
func (s *AuditStore) List(ctx context.Context, f audit.Filter) ([]audit.Event, string, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	where := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// The two secondary facets: by-user takes precedence over by-tender.
	if f.UserID != "" {
		where = append(where, "user_id="+arg(f.UserID))
	} else if f.TenderID != "" {
		where = append(where, "tender_id="+arg(f.TenderID))
	}
	if f.Action != "" {
		where = append(where, "action="+arg(f.Action))
	}
	if f.Token != "" {
		k, err := decodeToken(f.Token)
		if err != nil {
			return nil, "", ErrBadToken
		}
		where = append(where, fmt.Sprintf("(ts, audit_id) < (%s, %s)", arg(k.TS), arg(k.AuditID)))
	}

	q := `
SELECT audit_id, ts, user_id, user_role, action,
       coalesce(tender_id,''), coalesce(file_key,''), coalesce(version_id,''),
       ip_address, user_agent, result, metadata, retention_expiry
FROM audit_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += fmt.Sprintf(" ORDER BY ts DESC, audit_id DESC LIMIT %s", arg(limit+1))

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		ev, err := scanAuditEvent(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	next := ""
	if len(out) > limit {
		out = out[:limit]
		last := out[len(out)-1]
		next = encodeToken(pageKey{TS: last.Timestamp, AuditID: last.AuditID})
	}
	return out, next, nil
}

func scanAuditEvent(row pgx.Row) (audit.Event, error) {
	var ev audit.Event
	var metadata []byte
	err := row.Scan(&ev.AuditID, &ev.Timestamp, &ev.UserID, &ev.UserRole, &ev.Action,
		&ev.TenderID, &ev.FileKey, &ev.VersionID,
		&ev.IPAddress, &ev.UserAgent, &ev.Result, &metadata, &ev.RetentionExpiry)
	if err != nil {
		return audit.Event{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &ev.Metadata); err != nil {
			return audit.Event{}, err
		}
	}
	return ev, nil
}
