// File path: internal/mirror/coordinator_test.go
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jcarrick/logbook/internal/directory"
	"github.com/jcarrick/logbook/internal/recordstore"
	"github.com/jcarrick/logbook/internal/replica"
)

type fakeDirectory struct {
	projects map[string]*directory.Project
	calls    int
}

func (f *fakeDirectory) ResolveProject(ctx context.Context, localID string) (*directory.Project, error) {
	f.calls++
	if project, ok := f.projects[localID]; ok {
		return project, nil
	}
	return nil, directory.ErrProjectNotFound
}

type fakeRecords struct {
	mu          sync.Mutex
	createCalls int
	updateCalls int
	deleteCalls int
	createErr   error
	updateErr   error
	deleteErr   error
	result      *recordstore.CreateResult
	lastRef     string
	lastFields  recordstore.Fields
	onCreate    func()
}

func (f *fakeRecords) Available() bool { return true }

func (f *fakeRecords) Create(ctx context.Context, projectRef string, fields recordstore.Fields) (*recordstore.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastRef = projectRef
	f.lastFields = fields
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &recordstore.CreateResult{ID: fmt.Sprintf("R%d", f.createCalls), CreatedAt: "2026-08-01T10:00:00Z"}, nil
}

func (f *fakeRecords) Update(ctx context.Context, id string, fields recordstore.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	f.lastFields = fields
	return f.updateErr
}

func (f *fakeRecords) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

type fakeReplica struct {
	mu        sync.Mutex
	entries   map[string]replica.Entry
	insertErr error
	updateErr error
	deleteErr error
	inserts   int
}

func newFakeReplica() *fakeReplica {
	return &fakeReplica{entries: make(map[string]replica.Entry)}
}

func (f *fakeReplica) InsertEntry(ctx context.Context, entry replica.Entry) (*replica.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	if _, exists := f.entries[entry.RecordID]; exists {
		return nil, fmt.Errorf("duplicate record id %s", entry.RecordID)
	}
	f.entries[entry.RecordID] = entry
	stored := entry
	return &stored, nil
}

func (f *fakeReplica) GetEntry(ctx context.Context, recordID string) (*replica.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[recordID]
	if !ok {
		return nil, replica.ErrNotFound
	}
	stored := entry
	return &stored, nil
}

func (f *fakeReplica) UpdateEntry(ctx context.Context, recordID string, patch replica.EntryPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	entry, ok := f.entries[recordID]
	if !ok {
		return replica.ErrNotFound
	}
	if patch.Category != nil {
		entry.Category = *patch.Category
	}
	if patch.Content != nil {
		entry.Content = *patch.Content
	}
	if patch.Tags != nil {
		entry.Tags = *patch.Tags
	}
	f.entries[recordID] = entry
	return nil
}

func (f *fakeReplica) DeleteEntry(ctx context.Context, recordID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.entries, recordID)
	return nil
}

func strptr(s string) *string { return &s }

func newTestCoordinator(t *testing.T, dir *fakeDirectory, records recordstore.Client, store ReplicaStore) *Coordinator {
	t.Helper()
	coord, err := New(dir, records, store, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
	require.NoError(t, err)
	return coord
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func mappedDirectory() *fakeDirectory {
	return &fakeDirectory{projects: map[string]*directory.Project{
		"P1": {LocalID: "P1", AuthoritativeID: strptr("A1"), Name: "Field Ops", Status: "active"},
		"P2": {LocalID: "P2", Name: "Unprovisioned", Status: "active"},
	}}
}

func TestCreateEntryAuthoritativeSuccess(t *testing.T) {
	records := &fakeRecords{result: &recordstore.CreateResult{ID: "R1", CreatedAt: "2026-08-01T10:00:00Z"}}
	store := newFakeReplica()
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	result, err := coord.CreateEntry(context.Background(), "P1", "procedures", "did the thing", []string{"x", "y"})
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, SourceAuthoritativeReplica, result.Source)
	require.NotNil(t, result.AuthoritativeID)
	require.Equal(t, "R1", *result.AuthoritativeID)
	require.Nil(t, result.AuthoritativeError)
	require.Equal(t, "A1", *result.AuthoritativeProjectID)
	require.Equal(t, "A1", records.lastRef)

	require.NotNil(t, result.Replica)
	require.Equal(t, "R1", result.Replica.RecordID)
	require.Equal(t, "P1", result.Replica.LocalProjectID)
	require.Equal(t, "procedures", result.Replica.Category)
	require.Equal(t, "x, y", result.Replica.Tags)
	require.Equal(t, "2026-08-01T10:00:00Z", result.Replica.CreatedAt)
}

func TestCreateEntryAuthoritativeFailure(t *testing.T) {
	records := &fakeRecords{createErr: errors.New("rate limited")}
	store := newFakeReplica()
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	result, err := coord.CreateEntry(context.Background(), "P1", "procedures", "did the thing", []string{"x"})
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, SourceReplicaOnly, result.Source)
	require.Nil(t, result.AuthoritativeID)
	require.NotNil(t, result.AuthoritativeError)
	require.Contains(t, *result.AuthoritativeError, "rate limited")
	require.NotNil(t, result.Replica)
	require.True(t, IsPlaceholderID(result.Replica.RecordID))
	// The mapped authoritative project reference is resolved regardless of
	// call outcome.
	require.Equal(t, "A1", *result.Replica.AuthoritativeProjectID)
	require.Equal(t, 1, records.createCalls)
}

func TestCreateEntryUnmappedProjectSkipsAuthoritative(t *testing.T) {
	records := &fakeRecords{}
	store := newFakeReplica()
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	result, err := coord.CreateEntry(context.Background(), "P2", "observations", "noted", nil)
	require.NoError(t, err)
	require.Equal(t, SourceReplicaOnly, result.Source)
	require.Zero(t, records.createCalls)
	require.Nil(t, result.AuthoritativeError)
	require.True(t, IsPlaceholderID(result.Replica.RecordID))
	require.Nil(t, result.Replica.AuthoritativeProjectID)
}

func TestCreateEntryValidation(t *testing.T) {
	records := &fakeRecords{}
	store := newFakeReplica()
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	cases := []struct {
		name     string
		project  string
		category string
		content  string
	}{
		{"empty project", "", "procedures", "text"},
		{"empty category", "P1", "  ", "text"},
		{"empty content", "P1", "procedures", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := coord.CreateEntry(context.Background(), tc.project, tc.category, tc.content, nil)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
	require.Zero(t, records.createCalls)
	require.Zero(t, store.inserts)
}

func TestCreateEntryUnknownProject(t *testing.T) {
	records := &fakeRecords{}
	store := newFakeReplica()
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	_, err := coord.CreateEntry(context.Background(), "P404", "procedures", "text", nil)
	require.ErrorIs(t, err, directory.ErrProjectNotFound)
	require.Zero(t, records.createCalls)
	require.Zero(t, store.inserts)
}

func TestCreateEntryReplicaFailureIsFatalWhenOnlyPersistence(t *testing.T) {
	records := &fakeRecords{createErr: errors.New("down")}
	store := newFakeReplica()
	store.insertErr = errors.New("disk full")
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	_, err := coord.CreateEntry(context.Background(), "P1", "procedures", "text", nil)
	var replicaErr *ReplicaWriteError
	require.ErrorAs(t, err, &replicaErr)
}

func TestCreateEntryReplicaFailureAfterAuthoritativeSuccess(t *testing.T) {
	records := &fakeRecords{result: &recordstore.CreateResult{ID: "R9", CreatedAt: "2026-08-01T10:00:00Z"}}
	store := newFakeReplica()
	store.insertErr = errors.New("disk full")
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	result, err := coord.CreateEntry(context.Background(), "P1", "procedures", "text", nil)
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, SourceAuthoritativeReplica, result.Source)
	require.Equal(t, "R9", *result.AuthoritativeID)
	require.Nil(t, result.Replica)
}

func TestCreateEntryUsesLocalClockWhenAuthoritativeOmitsTimestamp(t *testing.T) {
	records := &fakeRecords{result: &recordstore.CreateResult{ID: "R2"}}
	store := newFakeReplica()
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	dir := mappedDirectory()
	coord, err := New(dir, records, store, slog.New(slog.NewTextHandler(testWriter{t}, nil)), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	result, err := coord.CreateEntry(context.Background(), "P1", "procedures", "text", nil)
	require.NoError(t, err)
	require.Equal(t, "2026-08-30T12:00:00Z", result.Replica.CreatedAt)
}

// A caller abort while the authoritative call is in flight must not lose
// the replica mirror: once the outcome is known, the mirror write runs on
// a context detached from the caller's cancellation.
func TestCreateEntryCallerAbortStillMirrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	records := &fakeRecords{
		result:   &recordstore.CreateResult{ID: "R1", CreatedAt: "2026-08-01T10:00:00Z"},
		onCreate: cancel,
	}
	store := newFakeReplica()
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	result, err := coord.CreateEntry(ctx, "P1", "procedures", "text", nil)
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, SourceAuthoritativeReplica, result.Source)
	require.NotNil(t, result.Replica)
	require.Equal(t, "R1", result.Replica.RecordID)
	require.Equal(t, 1, store.inserts)
}

func TestUpdateEntrySkipsAuthoritativeForPlaceholder(t *testing.T) {
	records := &fakeRecords{}
	store := newFakeReplica()
	pendingID := GeneratePlaceholderID()
	store.entries[pendingID] = replica.Entry{
		RecordID:       pendingID,
		Category:       "procedures",
		Content:        "old",
		LocalProjectID: "P2",
		CreatedAt:      "2026-08-01T09:00:00Z",
	}
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	result, err := coord.UpdateEntry(context.Background(), pendingID, EntryPatch{Content: strptr("new")})
	require.NoError(t, err)
	require.Equal(t, SourceReplicaOnly, result.Source)
	require.Zero(t, records.updateCalls)
	require.Equal(t, "new", store.entries[pendingID].Content)
}

func TestUpdateEntryAuthoritativeFirstThenReplica(t *testing.T) {
	records := &fakeRecords{}
	store := newFakeReplica()
	store.entries["R1"] = replica.Entry{
		RecordID:               "R1",
		AuthoritativeProjectID: strptr("A1"),
		Category:               "procedures",
		Content:                "old",
		LocalProjectID:         "P1",
		CreatedAt:              "2026-08-01T09:00:00Z",
	}
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	result, err := coord.UpdateEntry(context.Background(), "R1", EntryPatch{
		Content: strptr("new"),
		Tags:    []string{"a, b", "b"},
	})
	require.NoError(t, err)
	require.Equal(t, SourceAuthoritativeReplica, result.Source)
	require.Equal(t, 1, records.updateCalls)
	require.NotNil(t, records.lastFields.Tags)
	require.Equal(t, []string{"a", "b"}, *records.lastFields.Tags)
	require.Equal(t, "new", store.entries["R1"].Content)
	require.Equal(t, "a, b", store.entries["R1"].Tags)
}

// Clearing tags must reach both stores: a non-nil empty tag set serializes
// as an explicit empty list upstream, not an omitted field.
func TestUpdateEntryEmptyTagsClearBothStores(t *testing.T) {
	records := &fakeRecords{}
	store := newFakeReplica()
	store.entries["R1"] = replica.Entry{
		RecordID: "R1", Category: "procedures", Content: "text", Tags: "a, b",
		LocalProjectID: "P1",
	}
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	result, err := coord.UpdateEntry(context.Background(), "R1", EntryPatch{Tags: []string{}})
	require.NoError(t, err)
	require.Equal(t, SourceAuthoritativeReplica, result.Source)
	require.NotNil(t, records.lastFields.Tags)
	require.Empty(t, *records.lastFields.Tags)
	require.Equal(t, "", store.entries["R1"].Tags)
}

func TestUpdateEntryAuthoritativeFailureStillMirrors(t *testing.T) {
	records := &fakeRecords{updateErr: errors.New("timeout")}
	store := newFakeReplica()
	store.entries["R1"] = replica.Entry{RecordID: "R1", Category: "procedures", Content: "old", LocalProjectID: "P1"}
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	result, err := coord.UpdateEntry(context.Background(), "R1", EntryPatch{Content: strptr("new")})
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, SourceReplicaOnly, result.Source)
	require.NotNil(t, result.AuthoritativeError)
	require.Equal(t, "new", store.entries["R1"].Content)
}

func TestUpdateEntryReplicaFailureIsLoggedOnly(t *testing.T) {
	records := &fakeRecords{}
	store := newFakeReplica()
	store.entries["R1"] = replica.Entry{RecordID: "R1", Category: "procedures", Content: "old", LocalProjectID: "P1"}
	store.updateErr = errors.New("locked")
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	result, err := coord.UpdateEntry(context.Background(), "R1", EntryPatch{Content: strptr("new")})
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, SourceAuthoritativeReplica, result.Source)
}

func TestUpdateEntryValidation(t *testing.T) {
	coord := newTestCoordinator(t, mappedDirectory(), &fakeRecords{}, newFakeReplica())

	_, err := coord.UpdateEntry(context.Background(), "", EntryPatch{Content: strptr("x")})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = coord.UpdateEntry(context.Background(), "R1", EntryPatch{})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = coord.UpdateEntry(context.Background(), "R1", EntryPatch{Content: strptr("  ")})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeleteEntryBestEffortUpstream(t *testing.T) {
	records := &fakeRecords{deleteErr: errors.New("gone away")}
	store := newFakeReplica()
	store.entries["R1"] = replica.Entry{RecordID: "R1", Category: "procedures", Content: "x", LocalProjectID: "P1"}
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	result, err := coord.DeleteEntry(context.Background(), "R1")
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, SourceReplicaOnly, result.Source)
	require.NotNil(t, result.AuthoritativeError)
	_, exists := store.entries["R1"]
	require.False(t, exists)
}

func TestDeleteEntryPlaceholderSkipsAuthoritative(t *testing.T) {
	records := &fakeRecords{}
	store := newFakeReplica()
	pendingID := GeneratePlaceholderID()
	store.entries[pendingID] = replica.Entry{RecordID: pendingID, Category: "c", Content: "x", LocalProjectID: "P2"}
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	_, err := coord.DeleteEntry(context.Background(), pendingID)
	require.NoError(t, err)
	require.Zero(t, records.deleteCalls)
}

func TestNilRecordStoreDegradesToReplicaOnly(t *testing.T) {
	store := newFakeReplica()
	coord, err := New(mappedDirectory(), nil, store, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
	require.NoError(t, err)

	result, err := coord.CreateEntry(context.Background(), "P1", "procedures", "text", nil)
	require.NoError(t, err)
	require.Equal(t, SourceReplicaOnly, result.Source)
	require.NotNil(t, result.AuthoritativeError)
	require.True(t, IsPlaceholderID(result.Replica.RecordID))
}

// Concurrent writers on the same project can interleave between the two
// stores; the only guarantee is per-store single-row integrity, which this
// test documents.
func TestConcurrentCreatesKeepPerStoreIntegrity(t *testing.T) {
	records := &fakeRecords{}
	store := newFakeReplica()
	coord := newTestCoordinator(t, mappedDirectory(), records, store)

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := coord.CreateEntry(context.Background(), "P1", "procedures", fmt.Sprintf("entry %d", i), nil)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, store.entries, writers)
	require.Equal(t, writers, records.createCalls)
}
