package dataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of *pgxpool.Pool used to read the table.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LoadPostgres reads the dataset from a Postgres table with lowercase
// columns symptom, common_disorders, medications, therapies, assistive_tools
// and an integer id that fixes row order. NULL cells become ""; every other
// value, including text such as "NA" or "None", is kept as stored.
func LoadPostgres(ctx context.Context, q Querier, table string) (*Dataset, error) {
	rows, err := q.Query(ctx, selectQuery(table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Symptom, &r.Disorder, &r.Medications, &r.Therapies, &r.AssistiveTools); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(records)+1, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}

	return New(records), nil
}

func selectQuery(table string) string {
	cols := make([]string, len(RequiredColumns))
	for i, c := range RequiredColumns {
		name := pgx.Identifier{strings.ToLower(c)}.Sanitize()
		cols[i] = fmt.Sprintf("COALESCE(%s::text, '')", name)
	}
	ident := pgx.Identifier(strings.Split(table, ".")).Sanitize()
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(cols, ", "), ident)
}
