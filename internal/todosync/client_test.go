package todosync_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo/internal/service"
	"todo/internal/testutil"
	"todo/internal/todosync"
)

// setup returns a fake collection seeded with drafts and a refreshed client.
func setup(t *testing.T, opts []todosync.Option, drafts ...service.Draft) (*testutil.FakeServer, *todosync.Client) {
	t.Helper()
	fake := testutil.NewFakeServer(t)
	fake.Seed(drafts...)
	c := todosync.New(fake.Client(t), opts...)
	require.NoError(t, c.Refresh(context.Background()))
	return fake, c
}

func TestRefresh_ReplacesListInOrder(t *testing.T) {
	fake, c := setup(t, nil,
		service.Draft{Title: "A", Description: "a"},
		service.Draft{Title: "B", Description: "b", Done: true},
	)

	assert.Equal(t, []service.Task{
		{ID: 1, Title: "A", Description: "a"},
		{ID: 2, Title: "B", Description: "b", Done: true},
	}, c.Tasks())

	fake.Seed(service.Draft{Title: "C", Description: "c"})
	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, fake.Tasks(), c.Tasks())
	assert.False(t, c.Busy())
	assert.NoError(t, c.Err())
}

func TestRefresh_FailureLeavesListUnchanged(t *testing.T) {
	fake, c := setup(t, nil, service.Draft{Title: "A", Description: "a"})
	before := c.Tasks()

	fake.Seed(service.Draft{Title: "B", Description: "b"})
	fake.FailList(http.StatusInternalServerError)

	err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, todosync.FetchFailed)
	assert.Equal(t, before, c.Tasks())
	assert.Equal(t, err, c.Err())
	assert.False(t, c.Busy())
}

func TestRefresh_TransportFailure(t *testing.T) {
	fake, c := setup(t, nil)
	fake.FailList(testutil.Drop)

	err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, todosync.FetchFailed)
	assert.Equal(t, "Failed to fetch todos", todosync.Message(c.Err()))
}

func TestCreate_AppendsServerRecord(t *testing.T) {
	_, c := setup(t, nil, service.Draft{Title: "A", Description: "a"})

	require.NoError(t, c.Create(context.Background(), "B", "desc"))

	assert.Equal(t, []service.Task{
		{ID: 1, Title: "A", Description: "a"},
		{ID: 2, Title: "B", Description: "desc", Done: false},
	}, c.Tasks())
}

func TestCreate_SequenceGrowsByOneWithUniqueIDs(t *testing.T) {
	_, c := setup(t, nil)
	ctx := context.Background()

	seen := map[int]bool{}
	for i := 1; i <= 20; i++ {
		require.NoError(t, c.Create(ctx, "task", "body"))
		tasks := c.Tasks()
		require.Len(t, tasks, i)
		last := tasks[len(tasks)-1]
		assert.False(t, seen[last.ID], "duplicate id %d", last.ID)
		seen[last.ID] = true
	}
}

func TestCreate_BlankInputMakesNoRequest(t *testing.T) {
	fake, c := setup(t, nil, service.Draft{Title: "A", Description: "a"})
	before := c.Tasks()

	for _, in := range [][2]string{{"", "desc"}, {"   ", "desc"}, {"title", " \t"}} {
		err := c.Create(context.Background(), in[0], in[1])
		assert.ErrorIs(t, err, todosync.ErrInvalidDraft)
	}

	assert.Zero(t, fake.CountRequests(http.MethodPost))
	assert.Equal(t, before, c.Tasks())
	assert.NoError(t, c.Err())
}

func TestCreate_Failure(t *testing.T) {
	fake, c := setup(t, nil, service.Draft{Title: "A", Description: "a"})
	before := c.Tasks()
	fake.FailCreate(http.StatusServiceUnavailable)

	err := c.Create(context.Background(), "B", "b")
	assert.ErrorIs(t, err, todosync.CreateFailed)
	assert.Equal(t, before, c.Tasks())
	assert.False(t, c.Busy())
}

func TestToggle_FlipsBothWays(t *testing.T) {
	fake, c := setup(t, nil, service.Draft{Title: "A", Description: "a"})
	ctx := context.Background()

	require.NoError(t, c.Toggle(ctx, 1))
	task, _ := c.Find(1)
	assert.True(t, task.Done)
	assert.True(t, fake.Tasks()[0].Done)

	require.NoError(t, c.Toggle(ctx, 1))
	task, _ = c.Find(1)
	assert.False(t, task.Done)
	assert.False(t, fake.Tasks()[0].Done)
}

func TestToggle_SendsNegationOfLocalState(t *testing.T) {
	fake, c := setup(t, nil, service.Draft{Title: "A", Description: "a"})

	// Another client completes the todo; the local view still says pending.
	resp, err := fake.HTTP.Client().Do(mustRequest(t, http.MethodPatch, fake.HTTP.URL+"/todos/1", `{"done":true}`))
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, c.Toggle(context.Background(), 1))
	task, _ := c.Find(1)
	assert.True(t, task.Done, "local flip is applied from local state")
	assert.True(t, fake.Tasks()[0].Done, "request carried done=true")
}

func TestToggle_FailureLeavesDone(t *testing.T) {
	fake, c := setup(t, nil, service.Draft{Title: "A", Description: "a"})
	fake.FailToggle(http.StatusInternalServerError)

	err := c.Toggle(context.Background(), 1)
	assert.ErrorIs(t, err, todosync.UpdateFailed)
	task, _ := c.Find(1)
	assert.False(t, task.Done)
	assert.Equal(t, "Failed to update todo", todosync.Message(c.Err()))
}

func TestToggle_UnknownID(t *testing.T) {
	fake, c := setup(t, nil)

	err := c.Toggle(context.Background(), 9)
	assert.ErrorIs(t, err, todosync.UpdateFailed)
	assert.ErrorIs(t, err, todosync.ErrNotFound)
	assert.Zero(t, fake.CountRequests(http.MethodPatch))
}

func TestEdit_TrustsServerRecord(t *testing.T) {
	fake, c := setup(t, nil, service.Draft{Title: "A", Description: "a"})
	fake.RewriteEdit(func(d service.Draft) service.Draft {
		d.Title = strings.ToUpper(d.Title)
		return d
	})

	require.NoError(t, c.Edit(context.Background(), 1, service.Draft{Title: "new", Description: "body", Done: true}))

	task, ok := c.Find(1)
	require.True(t, ok)
	assert.Equal(t, service.Task{ID: 1, Title: "NEW", Description: "body", Done: true}, task)
	assert.Equal(t, fake.Tasks()[0], task)
}

func TestEdit_Failure(t *testing.T) {
	fake, c := setup(t, nil, service.Draft{Title: "A", Description: "a"})
	before := c.Tasks()
	fake.FailEdit(http.StatusNotFound)

	err := c.Edit(context.Background(), 1, service.Draft{Title: "B", Description: "b"})
	assert.ErrorIs(t, err, todosync.EditFailed)
	assert.Equal(t, before, c.Tasks())
}

func TestEdit_ServerReturnsOtherIDKeepsIDsUnique(t *testing.T) {
	fake := testutil.NewFakeServer(t)
	fake.Seed(
		service.Draft{Title: "A", Description: "a"},
		service.Draft{Title: "B", Description: "b"},
	)
	svc := &misnumberedService{Service: fake.Client(t), id: 1}
	c := todosync.New(svc)
	require.NoError(t, c.Refresh(context.Background()))

	require.NoError(t, c.Edit(context.Background(), 2, service.Draft{Title: "x", Description: "y"}))

	assert.Equal(t, []service.Task{
		{ID: 1, Title: "A", Description: "a"},
		{ID: 2, Title: "x", Description: "y"},
	}, c.Tasks())
}

func TestRemove(t *testing.T) {
	fake, c := setup(t, nil,
		service.Draft{Title: "A", Description: "a"},
		service.Draft{Title: "B", Description: "b"},
	)

	require.NoError(t, c.Remove(context.Background(), 1))
	_, ok := c.Find(1)
	assert.False(t, ok)
	assert.Len(t, c.Tasks(), 1)
	assert.Equal(t, []string{"DELETE /todos/1"}, deletes(fake))
}

func TestRemove_FailureKeepsRecord(t *testing.T) {
	fake, c := setup(t, nil, service.Draft{Title: "A", Description: "a"})
	fake.FailDelete(1, http.StatusInternalServerError)

	err := c.Remove(context.Background(), 1)
	assert.ErrorIs(t, err, todosync.DeleteFailed)
	_, ok := c.Find(1)
	assert.True(t, ok)
}

func TestRemoveCompleted_RemovesOnlyDone(t *testing.T) {
	_, c := setup(t, nil,
		service.Draft{Title: "A", Description: "a", Done: true},
		service.Draft{Title: "B", Description: "b"},
	)

	require.NoError(t, c.RemoveCompleted(context.Background()))
	assert.Equal(t, []service.Task{{ID: 2, Title: "B", Description: "b"}}, c.Tasks())
}

func TestRemoveCompleted_NothingDone(t *testing.T) {
	fake, c := setup(t, nil, service.Draft{Title: "A", Description: "a"})

	require.NoError(t, c.RemoveCompleted(context.Background()))
	assert.Zero(t, fake.CountRequests(http.MethodDelete))
	assert.Len(t, c.Tasks(), 1)
}

func TestRemoveCompleted_AnyFailureLeavesListIdentical(t *testing.T) {
	fake, c := setup(t, nil,
		service.Draft{Title: "A", Description: "a", Done: true},
		service.Draft{Title: "B", Description: "b", Done: true},
		service.Draft{Title: "C", Description: "c"},
	)
	before := c.Tasks()
	fake.FailDelete(2, http.StatusInternalServerError)

	err := c.RemoveCompleted(context.Background())
	assert.ErrorIs(t, err, todosync.BulkDeleteFailed)
	assert.Equal(t, before, c.Tasks())

	// The delete that succeeded remotely is not reflected until a refresh.
	assert.Len(t, fake.Tasks(), 2)
	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, fake.Tasks(), c.Tasks())
}

func TestRemoveCompleted_RefreshAfterFailure(t *testing.T) {
	fake, c := setup(t, []todosync.Option{todosync.WithRefreshAfterBulkFailure(true)},
		service.Draft{Title: "A", Description: "a", Done: true},
		service.Draft{Title: "B", Description: "b", Done: true},
	)
	fake.FailDelete(2, http.StatusInternalServerError)

	err := c.RemoveCompleted(context.Background())
	assert.ErrorIs(t, err, todosync.BulkDeleteFailed)
	assert.ErrorIs(t, c.Err(), todosync.BulkDeleteFailed)
	assert.Equal(t, fake.Tasks(), c.Tasks())
	assert.False(t, c.Busy())
}

func TestRemoveCompleted_ResyncOutlivesBatchDeadline(t *testing.T) {
	fake, c := setup(t, []todosync.Option{
		todosync.WithTimeout(100 * time.Millisecond),
		todosync.WithRefreshAfterBulkFailure(true),
	},
		service.Draft{Title: "A", Description: "a", Done: true},
		service.Draft{Title: "B", Description: "b"},
	)
	fake.HoldDeletes()

	err := c.RemoveCompleted(context.Background())
	assert.ErrorIs(t, err, todosync.BulkDeleteFailed)
	assert.ErrorIs(t, c.Err(), todosync.BulkDeleteFailed)
	assert.NotErrorIs(t, c.Err(), todosync.FetchFailed)
	assert.Equal(t, 2, fake.CountRequests(http.MethodGet))
	assert.Equal(t, fake.Tasks(), c.Tasks())
	assert.False(t, c.Busy())
}

func TestRemoveCompleted_DeletesRunConcurrently(t *testing.T) {
	fake, c := setup(t, nil,
		service.Draft{Title: "A", Description: "a", Done: true},
		service.Draft{Title: "B", Description: "b", Done: true},
		service.Draft{Title: "C", Description: "c", Done: true},
		service.Draft{Title: "D", Description: "d"},
	)
	fake.HoldDeletes()

	done := make(chan error, 1)
	go func() { done <- c.RemoveCompleted(context.Background()) }()

	// All three deletes arrive while none has been answered.
	require.Eventually(t, func() bool { return fake.CountRequests(http.MethodDelete) == 3 },
		2*time.Second, 5*time.Millisecond)
	assert.True(t, c.Busy())

	// Completing D mid-flight does not add it to the batch already sent.
	require.NoError(t, c.Toggle(context.Background(), 4))

	fake.Release()
	require.NoError(t, <-done)

	assert.Equal(t, []service.Task{{ID: 4, Title: "D", Description: "d", Done: true}}, c.Tasks())
	assert.False(t, c.Busy())
}

func TestSuccessClearsLastError(t *testing.T) {
	fake, c := setup(t, nil)
	fake.FailList(http.StatusInternalServerError)
	require.Error(t, c.Refresh(context.Background()))
	require.Error(t, c.Err())

	fake.FailList(0)
	require.NoError(t, c.Refresh(context.Background()))
	assert.NoError(t, c.Err())
}

func TestFailureOverwritesLastError(t *testing.T) {
	fake, c := setup(t, nil, service.Draft{Title: "A", Description: "a"})
	fake.FailList(http.StatusInternalServerError)
	fake.FailDelete(1, http.StatusInternalServerError)

	require.Error(t, c.Refresh(context.Background()))
	require.Error(t, c.Remove(context.Background(), 1))
	assert.ErrorIs(t, c.Err(), todosync.DeleteFailed)
	assert.NotErrorIs(t, c.Err(), todosync.FetchFailed)
}

func TestTimeoutReachesTerminalState(t *testing.T) {
	fake, c := setup(t, []todosync.Option{todosync.WithTimeout(50 * time.Millisecond)},
		service.Draft{Title: "A", Description: "a"},
	)
	fake.HoldDeletes()

	err := c.Remove(context.Background(), 1)
	assert.ErrorIs(t, err, todosync.DeleteFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, c.Busy())
	_, ok := c.Find(1)
	assert.True(t, ok)
}

func TestOnChangeSeesBusyTransitions(t *testing.T) {
	var mu sync.Mutex
	var busy []bool
	_, c := setup(t, []todosync.Option{todosync.WithOnChange(func(s todosync.Snapshot) {
		mu.Lock()
		busy = append(busy, s.Busy)
		mu.Unlock()
	})})

	mu.Lock()
	assert.Equal(t, []bool{true, false}, busy)
	mu.Unlock()
	assert.False(t, c.Busy())
}

func TestToggleBusyFlag(t *testing.T) {
	for _, raise := range []bool{false, true} {
		fake := testutil.NewFakeServer(t)
		fake.Seed(service.Draft{Title: "A", Description: "a"})
		gated := &gatedService{Service: fake.Client(t), release: make(chan struct{})}
		c := todosync.New(gated, todosync.WithBusyOnToggle(raise))
		require.NoError(t, c.Refresh(context.Background()))

		done := make(chan error, 1)
		go func() { done <- c.Toggle(context.Background(), 1) }()
		<-gated.waiting()

		assert.Equal(t, raise, c.Busy())
		close(gated.release)
		require.NoError(t, <-done)
		assert.False(t, c.Busy())
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", todosync.Message(nil))
	assert.Equal(t, "boom", todosync.Message(errors.New("boom")))
	err := &todosync.Error{Kind: todosync.BulkDeleteFailed, Err: errors.New("delete 3: 500")}
	assert.Equal(t, "Failed to delete completed todos", todosync.Message(err))
	assert.Equal(t, "Failed to delete completed todos: delete 3: 500", err.Error())
	assert.Equal(t, "BulkDeleteFailed", todosync.BulkDeleteFailed.String())
}

func deletes(fake *testutil.FakeServer) []string {
	var out []string
	for _, r := range fake.Requests() {
		if strings.HasPrefix(r, http.MethodDelete) {
			out = append(out, r)
		}
	}
	return out
}

func mustRequest(t *testing.T, method, url, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// gatedService blocks SetDone until release is closed.
type gatedService struct {
	service.Service
	release chan struct{}

	once    sync.Once
	entered chan struct{}
}

func (g *gatedService) waiting() chan struct{} {
	g.once.Do(func() { g.entered = make(chan struct{}) })
	return g.entered
}

func (g *gatedService) SetDone(ctx context.Context, id int, done bool) error {
	close(g.waiting())
	<-g.release
	return g.Service.SetDone(ctx, id, done)
}

// misnumberedService answers every Update with the record stamped as id.
type misnumberedService struct {
	service.Service
	id int
}

func (m *misnumberedService) Update(ctx context.Context, id int, draft service.Draft) (service.Task, error) {
	task, err := m.Service.Update(ctx, id, draft)
	task.ID = m.id
	return task, err
}
