package repository_test

import (
	"context"

	"github.com/jackc/pgx/v5"
)

func truncate(ctx context.Context, url string) error {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, "TRUNCATE twofa_users")
	return err
}
