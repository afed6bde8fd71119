package event

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/planit/planit/internal/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var db *pgxpool.Pool

func TestMain(m *testing.M) {
	var cleanup func()
	db, cleanup = test_utils.TestWithDB()
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, Repository, int) {
	ctx := context.Background()
	repository := NewPostgresRepository(db)
	owner := test_utils.CreateUser(t, db)
	return ctx, repository, owner.Id
}

func TestPostgresRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) (context.Context, Repository, int, int) {
		ctx, repo, ownerId := setupTestRepository(t)
		otherId := test_utils.CreateUser(t, db).Id
		return ctx, repo, ownerId, otherId
	})
}

func TestPostgresRepository_GetEvent_MalformedId(t *testing.T) {
	ctx, repo, ownerId := setupTestRepository(t)

	_, err := repo.GetEvent(ctx, ownerId, "not-a-uuid")

	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestMongoRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("mongo container test skipped in short mode")
	}
	mongoDb := test_utils.TestWithMongo(t)
	repo := NewMongoRepository(mongoDb)
	require.NoError(t, repo.EnsureIndexes(context.Background()))

	nextOwner := 0
	runRepositoryContract(t, func(t *testing.T) (context.Context, Repository, int, int) {
		nextOwner += 2
		return context.Background(), repo, nextOwner, nextOwner + 1
	})
}

func TestRepositoryStub(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) (context.Context, Repository, int, int) {
		return context.Background(), NewRepositoryStub(), 1, 2
	})
}

// runRepositoryContract checks the behavior every Repository implementation shares.
// setup returns a repository and two owners without events.
func runRepositoryContract(t *testing.T, setup func(t *testing.T) (context.Context, Repository, int, int)) {
	day := func(d int) civil.Date {
		return civil.Date{Year: 2024, Month: time.February, Day: d}
	}
	newEvent := func(name string, date civil.Date, at string) Event {
		return Event{Name: name, Date: date, Time: at, Venue: "Venue of " + name}
	}

	t.Run("should store and get event", func(t *testing.T) {
		// given
		ctx, repo, ownerId, _ := setup(t)
		e := newEvent("Gym", day(15), "09:00")
		e.Location = "Main St 1"
		e.Description = "leg day"

		// when
		stored, err := repo.StoreEvent(ctx, ownerId, e)
		require.NoError(t, err)

		// then
		assert.NotEmpty(t, stored.Id)
		fetched, err := repo.GetEvent(ctx, ownerId, stored.Id)
		require.NoError(t, err)
		assert.Equal(t, stored.Id, fetched.Id)
		assert.Equal(t, ownerId, fetched.OwnerId)
		assert.Equal(t, "Gym", fetched.Name)
		assert.Equal(t, day(15), fetched.Date)
		assert.Equal(t, "09:00", fetched.Time)
		assert.Equal(t, "Venue of Gym", fetched.Venue)
		assert.Equal(t, "Main St 1", fetched.Location)
		assert.Equal(t, "leg day", fetched.Description)
		assert.False(t, fetched.CreatedAt.IsZero())
	})

	t.Run("should list events ordered by date and time", func(t *testing.T) {
		// given
		ctx, repo, ownerId, _ := setup(t)
		_, _ = repo.StoreEvent(ctx, ownerId, newEvent("Dinner", day(16), "19:00"))
		_, _ = repo.StoreEvent(ctx, ownerId, newEvent("Standup", day(15), "14:30"))
		_, _ = repo.StoreEvent(ctx, ownerId, newEvent("Gym", day(15), "09:00"))

		// when
		events, err := repo.ListEvents(ctx, ownerId)

		// then
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "Gym", events[0].Name)
		assert.Equal(t, "Standup", events[1].Name)
		assert.Equal(t, "Dinner", events[2].Name)
	})

	t.Run("should keep creation order for events at the same date and time", func(t *testing.T) {
		// given
		ctx, repo, ownerId, _ := setup(t)
		names := []string{"Coffee", "Alarm", "Breakfast", "Call", "Bus"}
		for _, name := range names {
			_, err := repo.StoreEvent(ctx, ownerId, newEvent(name, day(15), "08:00"))
			require.NoError(t, err)
		}

		// when
		listed, errList := repo.ListEvents(ctx, ownerId)
		ranged, errRange := repo.ListEventsBetween(ctx, ownerId, day(15), day(15))

		// then
		require.NoError(t, errList)
		require.NoError(t, errRange)
		for _, events := range [][]Event{listed, ranged} {
			got := make([]string, 0, len(events))
			for _, e := range events {
				got = append(got, e.Name)
			}
			assert.Equal(t, names, got)
		}
	})

	t.Run("should list events within inclusive range", func(t *testing.T) {
		ctx, repo, ownerId, _ := setup(t)
		_, _ = repo.StoreEvent(ctx, ownerId, newEvent("Before", day(14), "09:00"))
		_, _ = repo.StoreEvent(ctx, ownerId, newEvent("First", day(15), "09:00"))
		_, _ = repo.StoreEvent(ctx, ownerId, newEvent("Last", day(16), "23:59"))
		_, _ = repo.StoreEvent(ctx, ownerId, newEvent("After", day(17), "00:00"))

		events, err := repo.ListEventsBetween(ctx, ownerId, day(15), day(16))

		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "First", events[0].Name)
		assert.Equal(t, "Last", events[1].Name)
	})

	t.Run("should return empty list for owner without events", func(t *testing.T) {
		ctx, repo, ownerId, _ := setup(t)

		events, err := repo.ListEvents(ctx, ownerId)

		require.NoError(t, err)
		assert.NotNil(t, events)
		assert.Empty(t, events)
	})

	t.Run("should update event", func(t *testing.T) {
		// given
		ctx, repo, ownerId, _ := setup(t)
		stored, _ := repo.StoreEvent(ctx, ownerId, newEvent("Gym", day(15), "09:00"))
		stored.Name = "Yoga"
		stored.Date = day(20)
		stored.Location = ""

		// when
		updated, err := repo.UpdateEvent(ctx, ownerId, stored)

		// then
		require.NoError(t, err)
		assert.Equal(t, "Yoga", updated.Name)
		fetched, err := repo.GetEvent(ctx, ownerId, stored.Id)
		require.NoError(t, err)
		assert.Equal(t, "Yoga", fetched.Name)
		assert.Equal(t, day(20), fetched.Date)
	})

	t.Run("should delete event", func(t *testing.T) {
		ctx, repo, ownerId, _ := setup(t)
		stored, _ := repo.StoreEvent(ctx, ownerId, newEvent("Gym", day(15), "09:00"))

		err := repo.DeleteEvent(ctx, ownerId, stored.Id)

		require.NoError(t, err)
		_, err = repo.GetEvent(ctx, ownerId, stored.Id)
		assert.ErrorIs(t, err, ErrEventNotFound)
		assert.ErrorIs(t, repo.DeleteEvent(ctx, ownerId, stored.Id), ErrEventNotFound)
	})

	t.Run("should hide events of other owners", func(t *testing.T) {
		// given
		ctx, repo, ownerId, otherId := setup(t)
		stored, _ := repo.StoreEvent(ctx, ownerId, newEvent("Gym", day(15), "09:00"))

		// when
		_, getErr := repo.GetEvent(ctx, otherId, stored.Id)
		_, updateErr := repo.UpdateEvent(ctx, otherId, stored)
		deleteErr := repo.DeleteEvent(ctx, otherId, stored.Id)
		otherEvents, listErr := repo.ListEvents(ctx, otherId)

		// then
		assert.ErrorIs(t, getErr, ErrEventNotFound)
		assert.ErrorIs(t, updateErr, ErrEventNotFound)
		assert.ErrorIs(t, deleteErr, ErrEventNotFound)
		assert.NoError(t, listErr)
		assert.Empty(t, otherEvents)
		_, err := repo.GetEvent(ctx, ownerId, stored.Id)
		assert.NoError(t, err)
	})
}
