package adapters

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/types"
)

func sampleDocument() types.Document {
	top := types.NewSection("s1", "hero", types.LayoutFullWidth)
	top.Components = []types.Component{
		{ID: "c1", Type: "hero", Content: map[string]any{"name": "Ada"}, Styles: map[string]any{"padding": float64(32)}},
		{ID: "c2", Type: "biography", Content: map[string]any{"text": "Hello"}, Styles: map[string]any{}},
	}
	cols := types.NewSection("s2", "content", types.LayoutTwoColumn)
	cols.Columns["column_2"] = []types.Component{
		{ID: "c3", Type: "topics", Content: map[string]any{"topic_1": "Go"}, Styles: map[string]any{}},
	}
	return types.Document{Sections: []types.Section{top, cols}, Theme: "dark"}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFileStore(filepath.Join(dir, "kits"))
	require.NoError(t, err)
	sqlite, err := OpenSQL(context.Background(), DialectSQLite, filepath.Join(dir, "db", "kits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{"memory": NewMemory(), "file": fs, "sqlite": sqlite}
}

func TestStoresRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := Record{ID: "kit-1", Document: sampleDocument(), Version: "1.0.0", CreatedAt: ts, UpdatedAt: ts}
			require.NoError(t, store.Put(ctx, rec))

			got, err := store.Get(ctx, "kit-1")
			require.NoError(t, err)
			if diff := cmp.Diff(rec.Document, got.Document, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("document mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, "1.0.0", got.Version)
			assert.True(t, ts.Equal(got.UpdatedAt))

			list, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "kit-1", list[0].ID)

			require.NoError(t, store.Delete(ctx, "kit-1"))
			_, err = store.Get(ctx, "kit-1")
			assert.True(t, errors.IsNotFound(err))
			assert.True(t, errors.IsNotFound(store.Delete(ctx, "kit-1")))
		})
	}
}

func TestStorePutOverwrites(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := sampleDocument()
			require.NoError(t, store.Put(ctx, Record{ID: "k", Document: doc, CreatedAt: time.Now(), UpdatedAt: time.Now()}))
			doc.Theme = "light"
			require.NoError(t, store.Put(ctx, Record{ID: "k", Document: doc, CreatedAt: time.Now(), UpdatedAt: time.Now()}))

			got, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "light", got.Document.Theme)
		})
	}
}

func TestFileStoreRejectsPathTraversal(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	err = fs.Put(context.Background(), Record{ID: "../escape"})
	assert.True(t, errors.IsValidation(err))
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	m := NewMemory()
	doc := sampleDocument()
	require.NoError(t, m.Put(context.Background(), Record{ID: "k", Document: doc}))
	doc.Sections[0].Components[0].Content["name"] = "changed"

	got, err := m.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Document.Sections[0].Components[0].Content["name"])
}

func TestStoreAdapterSaveLoad(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	a := New(NewMemory(), types.Config{Theme: "light"}, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	id, err := a.Save(ctx, types.SavePayload{State: sampleDocument(), Version: "1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	res, err := a.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, res.ID)
	assert.Equal(t, now, res.Timestamp)
	assert.Len(t, res.State.Sections, 2)

	again, err := a.Save(ctx, types.SavePayload{ID: id, State: sampleDocument()})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	cfg, err := a.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.Theme)
}

func TestStoreAdapterLoadMissing(t *testing.T) {
	a := New(NewMemory(), types.Config{})
	_, err := a.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsAdapter(err))

	var be *errors.BuilderError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, errors.ErrCodeLoadFailed, be.Code)
	assert.True(t, errors.IsNotFound(be.Cause))
}

type stubExporter struct{ err error }

func (s stubExporter) Export(context.Context, types.Document, types.ExportFormat) (types.ExportResult, error) {
	return types.ExportResult{URL: "/exports/kit.html", Filename: "kit.html"}, s.err
}

func TestStoreAdapterExport(t *testing.T) {
	ctx := context.Background()

	_, err := New(NewMemory(), types.Config{}).Export(ctx, sampleDocument(), types.ExportHTML)
	assert.True(t, errors.IsAdapter(err), "no exporter configured")

	res, err := New(NewMemory(), types.Config{}, WithExporter(stubExporter{})).Export(ctx, sampleDocument(), types.ExportHTML)
	require.NoError(t, err)
	assert.Equal(t, "kit.html", res.Filename)

	_, err = New(NewMemory(), types.Config{}, WithExporter(stubExporter{err: errors.New("disk full")})).
		Export(ctx, sampleDocument(), types.ExportHTML)
	assert.True(t, errors.IsAdapter(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestHostBridge(t *testing.T) {
	h := NewHostBridge()
	var got []string
	unsub := h.On(HostSaveRequested, func(_ context.Context, id string) { got = append(got, "save:"+id) })
	h.On(HostLoadRequested, func(_ context.Context, id string) { got = append(got, "load:"+id) })

	assert.Equal(t, 1, h.Request(context.Background(), HostSaveRequested, "a"))
	assert.Equal(t, 1, h.Request(context.Background(), HostLoadRequested, "b"))
	unsub()
	unsub()
	assert.Equal(t, 0, h.Request(context.Background(), HostSaveRequested, "c"))
	assert.Equal(t, []string{"save:a", "load:b"}, got)
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, StorageOptions{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, StorageOptions{Driver: DriverFile, Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, StorageOptions{Driver: DriverSQLite, Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, StorageOptions{Driver: "cassandra"})
	assert.Error(t, err)
}

func TestDSNBuilders(t *testing.T) {
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=kits sslmode=disable",
		PostgresDSN("db", 0, "u", "p", "kits", ""))
	assert.Equal(t, "u:p@tcp(db:3306)/kits?parseTime=true&charset=utf8mb4",
		MySQLDSN("db", 0, "u", "p", "kits"))
}

func TestRebind(t *testing.T) {
	s := &SQLStore{dialect: DialectPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE id = $1 AND v = $2", s.rebind("SELECT a FROM t WHERE id = ? AND v = ?"))
	s.dialect = DialectSQLite
	assert.Equal(t, "id = ?", s.rebind("id = ?"))
}
