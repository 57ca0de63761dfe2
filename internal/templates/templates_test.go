package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mediakit/internal/adapters"
	"github.com/conneroisu/mediakit/internal/builder"
	"github.com/conneroisu/mediakit/internal/components"
	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/state"
	"github.com/conneroisu/mediakit/internal/types"
)

var _ adapters.TemplateSource = (*Library)(nil)

func names(list []types.Template) []string {
	var out []string
	for _, t := range list {
		out = append(out, t.Name)
	}
	return out
}

const workshopYAML = `
name: workshop
title: Workshop Host
category: speaking
sections:
  - id: s1
    type: content
    layout: full-width
    components:
      - id: c1
        type: biography
        content:
          text: Hands-on sessions for engineering teams.
`

func TestBuiltins(t *testing.T) {
	lib, err := New("", nil, nil)
	require.NoError(t, err)

	list, err := lib.List(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"author", "podcast-guest", "speaker"}, names(list)); diff != "" {
		t.Errorf("built-in templates (-want +got):\n%s", diff)
	}

	speaker, err := lib.Get("speaker")
	require.NoError(t, err)
	require.Len(t, speaker.Sections, 4)
	assert.Equal(t, types.LayoutTwoColumn, speaker.Sections[1].Layout)
	col2, ok := speaker.Sections[1].List("column_2")
	require.True(t, ok)
	require.Len(t, col2, 1)
	assert.Equal(t, "Innovation", col2[0].Content["topic_2"])

	_, err = lib.Get("nope")
	assert.True(t, errors.IsNotFound(err))
}

func TestFilter(t *testing.T) {
	lib, err := New("", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"podcast-guest", "speaker"}, names(lib.Filter("", false)))
	assert.Equal(t, []string{"author", "podcast-guest", "speaker"}, names(lib.Filter("", true)))
	assert.Equal(t, []string{"speaker"}, names(lib.Filter("Speaking", false)))
	assert.Empty(t, lib.Filter("publishing", false))
}

func TestDirectoryOverridesAndJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "workshop.yml"), []byte(workshopYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "speaker.json"), []byte(`{
		"name": "speaker", "title": "Custom speaker", "category": "speaking",
		"sections": [{"id": "s1", "type": "header", "layout": "full-width", "components": [{"id": "h", "type": "hero"}]}]
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	lib, err := New(dir, nil, nil)
	require.NoError(t, err)
	list, _ := lib.List(context.Background())
	assert.Equal(t, []string{"author", "podcast-guest", "speaker", "workshop"}, names(list))

	speaker, err := lib.Get("speaker")
	require.NoError(t, err)
	assert.Equal(t, "Custom speaker", speaker.Title)
}

func TestNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "speaking", "workshops"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".drafts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "speaking", "workshops", "workshop.yaml"), []byte(workshopYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".drafts", "draft.yaml"), []byte("name: [unfinished"), 0o644))

	lib, err := New(dir, nil, nil)
	require.NoError(t, err)
	list, _ := lib.List(context.Background())
	assert.Equal(t, []string{"author", "podcast-guest", "speaker", "workshop"}, names(list))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "workshop.yml"), []byte(workshopYAML), 0o644))
	err = lib.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already defined in speaking/workshops/workshop.yaml")
}

func TestMissingDirIsEmpty(t *testing.T) {
	lib, err := New(filepath.Join(t.TempDir(), "absent"), nil, nil)
	require.NoError(t, err)
	list, _ := lib.List(context.Background())
	assert.Len(t, list, 3)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no name":      "sections: [{id: s, layout: full-width, components: [{type: hero}]}]",
		"no sections":  "name: empty",
		"bad layout":   "name: x\nsections: [{id: s, layout: four-column}]",
		"missing type": "name: x\nsections: [{id: s, layout: full-width, components: [{id: c}]}]",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(src), ".yaml")
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}

	_, err := Decode([]byte("name: [unterminated"), ".yaml")
	assert.Error(t, err)
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workshop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(workshopYAML), 0o644))

	bus := eventbus.New(nil)
	var counts []int
	bus.On(eventbus.TemplatesReloaded, func(_ context.Context, ev eventbus.Event) error {
		counts = append(counts, ev.Payload.(eventbus.TemplatePayload).Count)
		return nil
	})
	lib, err := New(dir, bus, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(path, []byte("name: [broken"), 0o644))
	require.Error(t, lib.Reload(ctx))
	_, err = lib.Get("workshop")
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	require.NoError(t, lib.Reload(ctx))
	_, err = lib.Get("workshop")
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, []int{3}, counts)
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "speaking")
	require.NoError(t, os.Mkdir(nested, 0o755))
	bus := eventbus.New(nil)
	reloaded := make(chan int, 4)
	bus.On(eventbus.TemplatesReloaded, func(_ context.Context, ev eventbus.Event) error {
		select {
		case reloaded <- ev.Payload.(eventbus.TemplatePayload).Count:
		default:
		}
		return nil
	})
	lib, err := New(dir, bus, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx, 20*time.Millisecond) }()

	deadline := time.After(5 * time.Second)
	for {
		require.NoError(t, os.WriteFile(filepath.Join(nested, "workshop.yaml"), []byte(workshopYAML), 0o644))
		select {
		case n := <-reloaded:
			assert.Equal(t, 4, n)
			cancel()
			require.NoError(t, <-done)
			return
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			cancel()
			<-done
			t.Fatal("library never reloaded")
		}
	}
}

func TestWatchNeedsDir(t *testing.T) {
	lib, err := New("", nil, nil)
	require.NoError(t, err)
	assert.Error(t, lib.Watch(context.Background(), time.Millisecond))
}

func TestBuiltinsApplyCleanly(t *testing.T) {
	lib, err := New("", nil, nil)
	require.NoError(t, err)
	bus := eventbus.New(nil)
	reg := registry.New(bus, nil)
	require.NoError(t, components.RegisterBuiltins(reg))
	reg.Seal()
	b := builder.New(reg, state.NewManager(nil), bus,
		adapters.New(adapters.NewMemory(), types.Config{}, adapters.WithTemplates(lib)))
	ctx := context.Background()
	require.NoError(t, b.Init(ctx))
	t.Cleanup(b.Close)

	list, _ := lib.List(ctx)
	for _, tpl := range list {
		t.Run(tpl.Name, func(t *testing.T) {
			require.NoError(t, b.ApplyTemplate(ctx, tpl.Name))
			assert.Len(t, b.Document().Sections, len(tpl.Sections))
			assert.Empty(t, b.Document().DuplicateIDs())
		})
	}
}
