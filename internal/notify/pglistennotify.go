package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aleksaelezovic/vitalgraph/internal/vgerr"
)

// PGListenNotify publishes through PostgreSQL's NOTIFY, the
// "database-native LISTEN/NOTIFY" option spec §4.11 names as the
// multi-process alternative to InProcess. It shares C4's admin pool
// (dbpool.Admin) rather than opening a dedicated connection, since NOTIFY
// itself needs no long-lived session — only Listen below does.
type PGListenNotify struct {
	pool *pgxpool.Pool
}

// NewPGListenNotify wraps pool (expected to be the admin pool from
// internal/dbpool.Set).
func NewPGListenNotify(pool *pgxpool.Pool) *PGListenNotify {
	return &PGListenNotify{pool: pool}
}

// Publish issues `SELECT pg_notify('<channel>', '<json>')`, the function
// form of `NOTIFY <channel>, '<json>'`. PostgreSQL's NOTIFY payload
// has an 8000-byte limit; callers publishing large Data maps should keep
// to IDs and small summary fields, per spec §4.11's event-not-snapshot
// design.
func (p *PGListenNotify) Publish(ctx context.Context, channel Channel, payload Event) error {
	const op = "notify.PGListenNotify.Publish"
	body, err := marshalEvent(payload)
	if err != nil {
		return vgerr.New(vgerr.Internal, op, err)
	}
	sql := fmt.Sprintf("SELECT pg_notify(%s, %s)", quoteLiteral(string(channel)), quoteLiteral(body))
	if _, err := p.pool.Exec(ctx, sql); err != nil {
		return vgerr.New(vgerr.Connectivity, op, err)
	}
	return nil
}

// quoteLiteral escapes s as a single-quoted SQL string literal. pg_notify
// is called via a literal SQL statement (not $1/$2 placeholders) because
// its channel argument must be a simple identifier-like string PostgreSQL
// can validate at parse time; values still go through this escaper rather
// than naive concatenation.
func quoteLiteral(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	out = append(out, '\'')
	return string(out)
}

// Listen acquires a dedicated connection and blocks, delivering every
// NOTIFY on channel to onEvent until ctx is cancelled or the connection
// is lost. Unlike Publish, Listen needs a connection that outlives a
// single statement, so it leases its own rather than using p.pool
// per-call.
func (p *PGListenNotify) Listen(ctx context.Context, channel Channel, onEvent func(Event)) error {
	const op = "notify.PGListenNotify.Listen"
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return vgerr.New(vgerr.Connectivity, op, err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf("LISTEN %s", quoteIdentChannel(channel))); err != nil {
		return vgerr.New(vgerr.Connectivity, op, err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return vgerr.New(vgerr.Connectivity, op, err)
		}
		var ev Event
		if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil {
			continue // malformed payload from a non-VitalGraph NOTIFY on the same channel name
		}
		onEvent(ev)
	}
}

func quoteIdentChannel(c Channel) string {
	return `"` + string(c) + `"`
}
