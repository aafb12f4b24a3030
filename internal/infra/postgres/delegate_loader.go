package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// DelegateLoader reads verified delegate addresses from Postgres.
type DelegateLoader struct {
	pool *pgxpool.Pool
}

func NewDelegateLoader(pool *pgxpool.Pool) *DelegateLoader {
	return &DelegateLoader{pool: pool}
}

// LoadVerifiedDelegates returns the user's verified delegates, oldest first. No rows is not an error.
func (l *DelegateLoader) LoadVerifiedDelegates(ctx context.Context, userID string) ([]string, error) {
	rows, err := l.pool.Query(ctx, `SELECT email FROM delegates WHERE user_id=$1 AND verified ORDER BY created_at, email`, userID)
	if err != nil {
		return nil, fmt.Errorf("load delegates: %w", err)
	}
	defer rows.Close()

	emails := make([]string, 0, 4)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan delegate: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load delegates: %w", err)
	}
	return emails, nil
}
