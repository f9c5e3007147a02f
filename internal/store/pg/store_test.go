package pg

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dropDatabas3/socialgate/internal/domain/repository"
)

// testDSN devuelve SOCIALGATE_TEST_PG_DSN o levanta un postgres efímero.
func testDSN(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}
	if dsn := os.Getenv("SOCIALGATE_TEST_PG_DSN"); dsn != "" {
		return dsn
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	c, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("socialgate"),
		postgres.WithUsername("socialgate"),
		postgres.WithPassword("socialgate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresStore(t *testing.T) {
	dsn := testDSN(t)
	require.NoError(t, MigrateUp(dsn))

	v, dirty, err := Version(dsn)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
	assert.False(t, dirty)

	ctx := context.Background()
	st, err := New(ctx, dsn, Options{MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(st.Close)
	require.NoError(t, st.Ping(ctx))

	reset := func(t *testing.T) {
		t.Helper()
		_, err := st.Pool().Exec(ctx, `TRUNCATE accounts, sessions`)
		require.NoError(t, err)
	}
	count := func(t *testing.T) int {
		t.Helper()
		var n int
		require.NoError(t, st.Pool().QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&n))
		return n
	}
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("ConcurrentFirstLoginsSharingEmail", func(t *testing.T) {
		reset(t)
		const n = 8
		email := "race@example.com"

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			outcomes = map[repository.ResolveOutcome]int{}
			ids      = map[string]struct{}{}
			errs     []error
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				acc, out, err := st.Accounts.Resolve(ctx, repository.ResolveInput{
					Identity: repository.Identity{
						Provider:   "google",
						ProviderID: fmt.Sprintf("g-%d", i),
						Email:      strp(email),
					},
					LinkByEmail: true,
					Now:         now,
				})
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				outcomes[out]++
				ids[acc.ID] = struct{}{}
			}(i)
		}
		wg.Wait()

		require.Empty(t, errs)
		assert.Equal(t, 1, count(t))
		assert.Len(t, ids, 1)
		assert.Equal(t, 1, outcomes[repository.OutcomeCreated])
		assert.Equal(t, n-1, outcomes[repository.OutcomeLinked])
	})

	t.Run("ConcurrentSameIdentity", func(t *testing.T) {
		reset(t)
		const n = 6
		var wg sync.WaitGroup
		errc := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := st.Accounts.Resolve(ctx, repository.ResolveInput{
					Identity: repository.Identity{Provider: "kakao", ProviderID: "42"},
					Now:      now,
				})
				errc <- err
			}()
		}
		wg.Wait()
		close(errc)
		for err := range errc {
			require.NoError(t, err)
		}
		assert.Equal(t, 1, count(t))
	})

	t.Run("LastLoginWinsRelink", func(t *testing.T) {
		reset(t)
		email := "jane@example.com"
		first, out, err := st.Accounts.Resolve(ctx, repository.ResolveInput{
			Identity:    repository.Identity{Provider: "kakao", ProviderID: "k-1", Email: strp(email), FirstName: strp("Jane")},
			LinkByEmail: true,
			Now:         now,
		})
		require.NoError(t, err)
		assert.Equal(t, repository.OutcomeCreated, out)

		later := now.Add(time.Minute)
		linked, out, err := st.Accounts.Resolve(ctx, repository.ResolveInput{
			Identity:    repository.Identity{Provider: "google", ProviderID: "g-1", Email: strp(email), LastName: strp("Doe")},
			LinkByEmail: true,
			Now:         later,
		})
		require.NoError(t, err)
		assert.Equal(t, repository.OutcomeLinked, out)
		assert.Equal(t, first.ID, linked.ID)

		got, err := st.Accounts.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "google", got.Provider)
		assert.Equal(t, "g-1", got.ProviderID)
		assert.Equal(t, "Jane", *got.FirstName)
		assert.Equal(t, "Doe", *got.LastName)
		assert.True(t, got.UpdatedAt.Equal(later))
		assert.True(t, got.CreatedAt.Equal(now))

		_, err = st.Accounts.FindByProvider(ctx, "kakao", "k-1")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		byEmail, err := st.Accounts.FindByEmail(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, first.ID, byEmail.ID)
	})

	t.Run("NoLinkPolicyKeepsEmailOwner", func(t *testing.T) {
		reset(t)
		email := "owner@example.com"
		owner, _, err := st.Accounts.Resolve(ctx, repository.ResolveInput{
			Identity: repository.Identity{Provider: "kakao", ProviderID: "k-2", Email: strp(email)},
			Now:      now,
		})
		require.NoError(t, err)

		other, out, err := st.Accounts.Resolve(ctx, repository.ResolveInput{
			Identity: repository.Identity{Provider: "google", ProviderID: "g-2", Email: strp(email)},
			Now:      now,
		})
		require.NoError(t, err)
		assert.Equal(t, repository.OutcomeCreated, out)
		assert.NotEqual(t, owner.ID, other.ID)
		assert.Nil(t, other.Email)
		assert.Equal(t, 2, count(t))
	})

	t.Run("MatchedMergesNonNilFields", func(t *testing.T) {
		reset(t)
		acc, _, err := st.Accounts.Resolve(ctx, repository.ResolveInput{
			Identity: repository.Identity{Provider: "apple", ProviderID: "a-1", FirstName: strp("A"), LastName: strp("B")},
			Now:      now,
		})
		require.NoError(t, err)

		again, out, err := st.Accounts.Resolve(ctx, repository.ResolveInput{
			Identity: repository.Identity{Provider: "apple", ProviderID: "a-1", Email: strp("a@example.com")},
			Now:      now.Add(time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, repository.OutcomeMatched, out)
		assert.Equal(t, acc.ID, again.ID)
		assert.Equal(t, "A", *again.FirstName)
		assert.Equal(t, "B", *again.LastName)
		assert.Equal(t, "a@example.com", *again.Email)
	})

	t.Run("InvalidInput", func(t *testing.T) {
		_, _, err := st.Accounts.Resolve(ctx, repository.ResolveInput{Identity: repository.Identity{Provider: "kakao"}})
		assert.ErrorIs(t, err, repository.ErrInvalidInput)
	})

	t.Run("SessionRoundTrip", func(t *testing.T) {
		reset(t)
		s := repository.Session{
			SID: "sid-1",
			Payload: repository.SessionPayload{
				UserID: "u-1",
				Claims: repository.SessionClaims{ID: "u-1", Email: strp("u@example.com"), FirstName: strp("U")},
			},
			ExpiresAt: now.Add(time.Hour),
			CreatedAt: now,
		}
		require.NoError(t, st.Sessions.Create(ctx, s))
		assert.ErrorIs(t, st.Sessions.Create(ctx, s), repository.ErrConflict)

		got, err := st.Sessions.Get(ctx, "sid-1", now)
		require.NoError(t, err)
		assert.Equal(t, s.Payload, got.Payload)
		assert.True(t, got.ExpiresAt.Equal(s.ExpiresAt))

		_, err = st.Sessions.Get(ctx, "sid-1", now.Add(2*time.Hour))
		assert.ErrorIs(t, err, repository.ErrNotFound)

		require.NoError(t, st.Sessions.Create(ctx, repository.Session{
			SID: "sid-2", Payload: repository.SessionPayload{UserID: "u-2"},
			ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-time.Hour),
		}))
		purged, err := st.Sessions.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.EqualValues(t, 1, purged)

		require.NoError(t, st.Sessions.Delete(ctx, "sid-1"))
		require.NoError(t, st.Sessions.Delete(ctx, "sid-1"))
		_, err = st.Sessions.Get(ctx, "sid-1", now)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func strp(s string) *string { return &s }
