package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/codepulse/internal/chat"
	"github.com/dropDatabas3/codepulse/internal/domain/repository"
	"github.com/dropDatabas3/codepulse/internal/identity"
	"github.com/dropDatabas3/codepulse/internal/store/adapters/memory"
)

func str(s string) *string { return &s }

// countingSource cuenta llamadas y opcionalmente bloquea hasta que gate se cierre.
type countingSource struct {
	*identity.StaticSource
	calls atomic.Int32
	gate  chan struct{}
}

func (s *countingSource) GetProfile(ctx context.Context, id string) (*identity.Profile, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	return s.StaticSource.GetProfile(ctx, id)
}

type recordingChat struct {
	mu    sync.Mutex
	calls []chat.Participant
	err   error
}

func (c *recordingChat) UpsertParticipant(ctx context.Context, p chat.Participant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, p)
	return c.err
}

func ada(id string, verified bool) *identity.Profile {
	return &identity.Profile{
		ID:             id,
		FirstName:      str("Ada"),
		LastName:       str("Lovelace"),
		ImageURL:       "https://img/ada.png",
		PrimaryEmailID: "e1",
		Emails:         []identity.EmailAddress{{ID: "e1", Address: "a@x.com", Verified: verified}},
	}
}

func setup(profiles ...*identity.Profile) (*Reconciler, *memory.Users, *countingSource, *recordingChat) {
	users := memory.NewUsers()
	src := &countingSource{StaticSource: identity.NewStaticSource(profiles...)}
	ch := &recordingChat{}
	return New(users, src, ch), users, src, ch
}

func TestReconcile_CreatesUserAndSyncsChat(t *testing.T) {
	r, users, _, ch := setup(ada("user_1", true))

	u, err := r.Reconcile(context.Background(), "user_1")
	require.NoError(t, err)
	require.Equal(t, "user_1", u.ExternalID)
	require.Equal(t, "a@x.com", u.Email)
	require.Equal(t, "Ada Lovelace", u.Name)
	require.Equal(t, "https://img/ada.png", u.ProfileImage)
	require.Equal(t, 1, users.Len())

	require.Equal(t, []chat.Participant{{ID: "user_1", Name: "Ada Lovelace", Image: "https://img/ada.png"}}, ch.calls)
}

func TestReconcile_FastPathSkipsProvider(t *testing.T) {
	r, users, src, ch := setup()
	existing, _, err := users.CreateIfAbsent(context.Background(), repository.CreateUserInput{ExternalID: "user_1", Name: "Ada"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		u, err := r.Reconcile(context.Background(), "user_1")
		require.NoError(t, err)
		require.Equal(t, existing.ID, u.ID)
	}
	require.Zero(t, src.calls.Load())
	require.Empty(t, ch.calls)
}

func TestReconcile_ConcurrentFirstLoginsYieldOneRecord(t *testing.T) {
	r, users, src, _ := setup(ada("user_1", true))
	src.gate = make(chan struct{})

	const n = 25
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := r.Reconcile(context.Background(), "user_1")
			errs[i] = err
			if u != nil {
				ids[i] = u.ID
			}
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	require.Equal(t, 1, users.Len())
	for i := range ids {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
}

func TestReconcile_ConcurrentAcrossReconcilersSharingStore(t *testing.T) {
	users := memory.NewUsers()
	src := identity.NewStaticSource(ada("user_1", true))

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// un reconciler por "proceso": sin singleflight compartido
			u, err := New(users, src, nil).Reconcile(context.Background(), "user_1")
			require.NoError(t, err)
			ids[i] = u.ID
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, users.Len())
	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
}

func TestReconcile_RebindsStaleExternalID(t *testing.T) {
	r, users, _, _ := setup(ada("new", true))
	old, _, err := users.CreateIfAbsent(context.Background(), repository.CreateUserInput{ExternalID: "old", Email: "a@x.com", Name: "Old Name"})
	require.NoError(t, err)

	u, err := r.Reconcile(context.Background(), "new")
	require.NoError(t, err)
	require.Equal(t, old.ID, u.ID)
	require.Equal(t, "new", u.ExternalID)
	require.Equal(t, "Ada Lovelace", u.Name)
	require.Equal(t, 1, users.Len())

	_, err = users.GetByExternalID(context.Background(), "old")
	require.True(t, repository.IsNotFound(err))
}

func TestReconcile_RejectsRebindOfUnverifiedEmail(t *testing.T) {
	r, users, _, ch := setup(ada("new", false))
	_, _, err := users.CreateIfAbsent(context.Background(), repository.CreateUserInput{ExternalID: "old", Email: "a@x.com", Name: "Old Name"})
	require.NoError(t, err)

	u, err := r.Reconcile(context.Background(), "new")
	require.Nil(t, u)
	var cre *ConflictRepairError
	require.ErrorAs(t, err, &cre)
	require.Equal(t, "old", cre.BoundTo)

	got, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "old", got.ExternalID)
	require.Equal(t, "Old Name", got.Name)
	require.Empty(t, ch.calls)
}

func TestReconcile_NoEmailCreatesByExternalIDOnly(t *testing.T) {
	r, users, src, _ := setup(&identity.Profile{ID: "user_1", Username: str("ada")})

	u, err := r.Reconcile(context.Background(), "user_1")
	require.NoError(t, err)
	require.Empty(t, u.Email)
	require.Equal(t, "ada", u.Name)

	_, err = r.Reconcile(context.Background(), "user_1")
	require.NoError(t, err)
	require.EqualValues(t, 1, src.calls.Load())
	require.Equal(t, 1, users.Len())
}

func TestReconcile_ProviderFailureWritesNothing(t *testing.T) {
	r, users, src, ch := setup(ada("user_1", true))
	boom := errors.New("connection reset")
	src.FailWith(boom)

	u, err := r.Reconcile(context.Background(), "user_1")
	require.Nil(t, u)
	var ule *UpstreamLookupError
	require.ErrorAs(t, err, &ule)
	require.False(t, ule.NotFound)
	require.ErrorIs(t, err, boom)
	require.Zero(t, users.Len())
	require.Empty(t, ch.calls)
}

func TestReconcile_ProviderNotFound(t *testing.T) {
	r, users, _, _ := setup()

	_, err := r.Reconcile(context.Background(), "ghost")
	var ule *UpstreamLookupError
	require.ErrorAs(t, err, &ule)
	require.True(t, ule.NotFound)
	require.Zero(t, users.Len())
}

func TestReconcile_ChatFailureStillReturnsDurableUser(t *testing.T) {
	r, users, _, ch := setup(ada("user_1", true))
	ch.err = errors.New("stream 503")

	u, err := r.Reconcile(context.Background(), "user_1")
	require.NotNil(t, u)
	var spe *SyncPropagationError
	require.ErrorAs(t, err, &spe)
	require.Equal(t, u.ID, spe.UserID)

	stored, gerr := users.GetByExternalID(context.Background(), "user_1")
	require.NoError(t, gerr)
	require.Equal(t, u.ID, stored.ID)
}

func TestReconcile_CallerCancelDiscardsButCompletes(t *testing.T) {
	r, users, src, _ := setup(ada("user_1", true))
	src.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(ctx, "user_1")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(src.gate)
	require.Eventually(t, func() bool { return users.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestReconcile_EmptyExternalID(t *testing.T) {
	r, _, _, _ := setup()
	_, err := r.Reconcile(context.Background(), "")
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

// racingUsers simula otro writer que toma el email entre GetByEmail y CreateIfAbsent.
type racingUsers struct {
	*memory.Users
	once sync.Once
}

func (r *racingUsers) CreateIfAbsent(ctx context.Context, in repository.CreateUserInput) (*repository.User, bool, error) {
	r.once.Do(func() {
		_, _, _ = r.Users.CreateIfAbsent(ctx, repository.CreateUserInput{ExternalID: "other", Email: in.Email})
	})
	return r.Users.CreateIfAbsent(ctx, in)
}

func TestReconcile_EmailRaceRetriesAsRebind(t *testing.T) {
	users := &racingUsers{Users: memory.NewUsers()}
	r := New(users, identity.NewStaticSource(ada("user_1", true)), nil)

	u, err := r.Reconcile(context.Background(), "user_1")
	require.NoError(t, err)
	require.Equal(t, "user_1", u.ExternalID)
	require.Equal(t, 1, users.Len())
}

type panickingChat struct{}

func (panickingChat) UpsertParticipant(context.Context, chat.Participant) error {
	panic("stream: nil response")
}

func TestReconcile_PanicBecomesError(t *testing.T) {
	users := memory.NewUsers()
	r := New(users, identity.NewStaticSource(ada("user_1", true)), panickingChat{})

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Reconcile(context.Background(), "user_1")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
		require.Contains(t, err.Error(), "panic")
	}

	// el grupo queda usable después del panic
	_, err := New(users, identity.NewStaticSource(), nil).Reconcile(context.Background(), "user_1")
	require.NoError(t, err)
}
