// Package analyticsdb holds the aggregation queries backing the analytics service.
package analyticsdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Queries runs the aggregation statements.
type Queries struct {
	db DBTX
}

// New wraps a connection or pool.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// ScopeParams narrows every aggregate. Empty Category or Status means no
// predicate; an invalid Since means no lower time bound.
type ScopeParams struct {
	Since    pgtype.Timestamptz
	Category string
	Status   string
}

// SummaryRow carries the headline aggregates.
type SummaryRow struct {
	Revenue   float64
	Orders    int64
	Customers int64
	Visits    int64
}

const summary = `
SELECT
    COALESCE(SUM(o.amount), 0)::float8 AS revenue,
    COUNT(o.id)                        AS orders,
    COUNT(DISTINCT o.customer_id)      AS customers,
    (
        SELECT COUNT(*)
        FROM site_visits v
        WHERE ($1::timestamptz IS NULL OR v.visited_at >= $1)
          AND ($2 = '' OR v.category = $2)
    )                                  AS visits
FROM orders o
WHERE ($1::timestamptz IS NULL OR o.created_at >= $1)
  AND ($2 = '' OR o.category = $2)
  AND ($3 = '' OR o.status = $3)
`

// Summary returns revenue, order, customer and visit totals for the scope.
func (q *Queries) Summary(ctx context.Context, arg ScopeParams) (SummaryRow, error) {
	row := q.db.QueryRow(ctx, summary, arg.Since, arg.Category, arg.Status)
	var out SummaryRow
	err := row.Scan(&out.Revenue, &out.Orders, &out.Customers, &out.Visits)
	return out, err
}

// DailyRevenueRow is one point of the revenue series.
type DailyRevenueRow struct {
	Day     pgtype.Date
	Revenue float64
}

const dailyRevenue = `
SELECT
    (o.created_at AT TIME ZONE 'UTC')::date AS day,
    COALESCE(SUM(o.amount), 0)::float8      AS revenue
FROM orders o
WHERE ($1::timestamptz IS NULL OR o.created_at >= $1)
  AND ($2 = '' OR o.category = $2)
  AND ($3 = '' OR o.status = $3)
GROUP BY day
ORDER BY day
`

// DailyRevenue returns revenue grouped per UTC day, oldest first.
func (q *Queries) DailyRevenue(ctx context.Context, arg ScopeParams) ([]DailyRevenueRow, error) {
	rows, err := q.db.Query(ctx, dailyRevenue, arg.Since, arg.Category, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailyRevenueRow
	for rows.Next() {
		var i DailyRevenueRow
		if err := rows.Scan(&i.Day, &i.Revenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
