package test_utils

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/planit/planit/pkg/user"
	"github.com/stretchr/testify/require"
)

// TestUser returns a user in the given timezone, as the identity middleware would
// place it in a request context.
func TestUser(id int, timezone string) user.User {
	return user.User{
		Id:          id,
		Uid:         uuid.NewString(),
		Username:    "test_user",
		DisplayName: "Test User",
		Settings: user.Settings{
			Timezone: timezone,
		},
	}
}

// CreateUser inserts a user row so that tables referencing users can be written to.
func CreateUser(t *testing.T, db *pgxpool.Pool) user.User {
	t.Helper()
	u := TestUser(0, "UTC")
	err := db.QueryRow(context.Background(),
		"INSERT INTO users (uid, username, display_name, timezone) VALUES ($1, $2, $3, $4) RETURNING id",
		u.Uid, u.Username, u.DisplayName, u.Settings.Timezone,
	).Scan(&u.Id)
	require.NoError(t, err)
	return u
}
