// Package dbcheck connects straight to the target's Postgres database to
// confirm tables exist, independent of any REST layer in front of it.
package dbcheck

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// RequiredTables are the tables the target application cannot run without.
var RequiredTables = []string{"users", "properties", "finances"}

// TableReport says which of the requested tables were found.
type TableReport struct {
	Present []string
	Missing []string
}

// OK reports whether every requested table was found.
func (r TableReport) OK() bool {
	return len(r.Missing) == 0
}

// CheckTables connects to dsn and looks up each table in the search path.
func CheckTables(ctx context.Context, dsn string, tables []string) (TableReport, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return TableReport{}, fmt.Errorf("dbcheck: connect: %w", err)
	}
	defer conn.Close(ctx)

	var rep TableReport
	for _, table := range tables {
		var exists bool
		if err := conn.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists); err != nil {
			return TableReport{}, fmt.Errorf("dbcheck: lookup %s: %w", table, err)
		}
		if exists {
			rep.Present = append(rep.Present, table)
		} else {
			rep.Missing = append(rep.Missing, table)
		}
	}
	log.Debugf("dbcheck: present=%v missing=%v", rep.Present, rep.Missing)
	return rep, nil
}
