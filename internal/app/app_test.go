package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/planit/planit/internal/clock"
	"github.com/planit/planit/internal/config"
	"github.com/planit/planit/pkg/calendar"
	"github.com/planit/planit/pkg/event"
	"github.com/planit/planit/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, autoProvision bool) (*mux.Router, *user.StubUserRepository) {
	t.Helper()
	userRepo := user.NewStubUserRepository()
	return newTestRouter(userRepo, autoProvision), userRepo
}

func newTestRouter(userRepo user.Repo, autoProvision bool) *mux.Router {
	cfg := config.Application{
		Store:    config.Store{Driver: config.StoreDriverPostgres},
		Auth:     config.Auth{AutoProvision: autoProvision},
		Calendar: config.Calendar{NavigationMonths: 1},
		Metrics:  config.Metrics{Enabled: true},
	}
	stores := Stores{
		UserRepo:  userRepo,
		EventRepo: event.NewRepositoryStub(),
		Close:     func() {},
	}
	fixed := &clock.Fixed{FixedNow: time.Date(2024, time.February, 15, 10, 0, 0, 0, time.UTC)}
	deps := BuildDependencies(stores, fixed, cfg)
	return NewRouter(deps, cfg)
}

// lockstepUserRepo holds the first two failed uid lookups until both have happened,
// so that two requests for a new user both try to create it.
type lockstepUserRepo struct {
	*user.StubUserRepository
	misses  atomic.Int32
	barrier sync.WaitGroup
}

func newLockstepUserRepo() *lockstepUserRepo {
	r := &lockstepUserRepo{StubUserRepository: user.NewStubUserRepository()}
	r.barrier.Add(2)
	return r
}

func (r *lockstepUserRepo) GetUserByUid(ctx context.Context, uid string) (user.User, error) {
	u, err := r.StubUserRepository.GetUserByUid(ctx, uid)
	if errors.Is(err, user.ErrUserNotFound) && r.misses.Add(1) <= 2 {
		r.barrier.Done()
		r.barrier.Wait()
	}
	return u, err
}

func do(r http.Handler, method, target, uid string, body any) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&payload).Encode(body)
	}
	req := httptest.NewRequest(method, target, &payload)
	if uid != "" {
		req.Header.Set(UserIdHeader, uid)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t, false)

	w := do(r, http.MethodGet, "/api/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := setupRouter(t, false)
	do(r, http.MethodGet, "/api/health", "", nil)

	w := do(r, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "planit_http_requests_total")
}

func TestIdentity(t *testing.T) {
	t.Run("should reject protected routes without identity", func(t *testing.T) {
		r, _ := setupRouter(t, false)

		for _, target := range []string{"/api/events", "/api/calendar/month/current", "/api/user/current"} {
			w := do(r, http.MethodGet, target, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code, target)
		}
	})

	t.Run("should reject unknown user without provisioning", func(t *testing.T) {
		r, _ := setupRouter(t, false)

		w := do(r, http.MethodGet, "/api/events", "stranger", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("should provision unknown user when enabled", func(t *testing.T) {
		r, repo := setupRouter(t, true)

		w := do(r, http.MethodGet, "/api/user/current", "newcomer", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var dto user.UserDTO
		require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
		assert.Equal(t, "newcomer", dto.Uid)
		assert.Equal(t, "UTC", dto.Settings.Timezone)
		_, err := repo.GetUserByUid(t.Context(), "newcomer")
		assert.NoError(t, err)
	})

	t.Run("should resolve known user", func(t *testing.T) {
		r, repo := setupRouter(t, false)
		_, err := repo.CreateUser(t.Context(), user.User{Uid: "alice", Username: "alice", DisplayName: "Alice"})
		require.NoError(t, err)

		w := do(r, http.MethodGet, "/api/user/current", "alice", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"displayName":"Alice"`)
	})
}

func TestIdentity_ConcurrentProvisioning(t *testing.T) {
	// given
	repo := newLockstepUserRepo()
	r := newTestRouter(repo, true)
	targets := []string{"/api/calendar/month/current", "/api/events"}
	codes := make([]int, len(targets))

	// when
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = do(r, http.MethodGet, target, "newcomer", nil).Code
		}()
	}
	wg.Wait()

	// then
	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
	provisioned, err := repo.GetUserByUid(t.Context(), "newcomer")
	require.NoError(t, err)
	assert.Equal(t, 1, provisioned.Id)
	_, err = repo.GetUser(t.Context(), 2)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestEventsAndCalendarFlow(t *testing.T) {
	// given
	r, _ := setupRouter(t, true)
	for _, e := range []event.CreateEventDTO{
		{Name: "Standup", Date: "2024-02-15", Time: "14:30", Venue: "Office"},
		{Name: "Gym", Date: "2024-02-15", Time: "09:00", Venue: "City Gym"},
	} {
		w := do(r, http.MethodPost, "/api/events", "alice", e)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	// when
	month := do(r, http.MethodGet, "/api/calendar/month?year=2024&month=2", "alice", nil)
	day := do(r, http.MethodGet, "/api/calendar/day/2024-02-15", "alice", nil)
	otherUser := do(r, http.MethodGet, "/api/events", "bob", nil)
	feed := do(r, http.MethodGet, "/api/events/export.ics", "alice", nil)

	// then
	require.Equal(t, http.StatusOK, month.Code)
	var monthDTO calendar.MonthDTO
	require.NoError(t, json.NewDecoder(month.Body).Decode(&monthDTO))
	assert.Equal(t, 2, monthDTO.Days[18].EventCount)

	require.Equal(t, http.StatusOK, day.Code)
	var dayDTO calendar.DayViewDTO
	require.NoError(t, json.NewDecoder(day.Body).Decode(&dayDTO))
	require.Len(t, dayDTO.Events, 2)
	assert.Equal(t, "Gym", dayDTO.Events[0].Name)

	require.Equal(t, http.StatusOK, otherUser.Code)
	assert.JSONEq(t, "[]", otherUser.Body.String())

	require.Equal(t, http.StatusOK, feed.Code)
	assert.Equal(t, 2, strings.Count(feed.Body.String(), "BEGIN:VEVENT"))
}
