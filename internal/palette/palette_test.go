package palette

import (
	"context"
	"testing"

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

func newRegistry(t *testing.T, bus *eventbus.Bus) *registry.Registry {
	t.Helper()
	reg := registry.New(bus, nil)
	require.NoError(t, components.RegisterBuiltins(reg))
	reg.Seal()
	return reg
}

func typesOf(items []Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Type)
	}
	return out
}

func TestItemsSortedByCategoryThenTitle(t *testing.T) {
	bus := eventbus.New(nil)
	p := New(newRegistry(t, bus), bus, nil)

	items := p.Items(Filter{})
	require.NotEmpty(t, items)
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]
		if prev.Category == cur.Category {
			assert.LessOrEqual(t, prev.Title, cur.Title)
		} else {
			assert.Less(t, prev.Category, cur.Category)
		}
	}
	for _, it := range items {
		assert.False(t, it.Locked, "premium tier unlocks %s", it.Type)
	}
}

func TestItemsFilter(t *testing.T) {
	bus := eventbus.New(nil)
	p := New(newRegistry(t, bus), bus, TierFree)

	contact := p.Items(Filter{Category: "Contact"})
	if diff := cmp.Diff([]string{"contact", "social"}, typesOf(contact)); diff != "" {
		t.Errorf("contact category (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"hero"}, typesOf(p.Items(Filter{Query: "  HERO "})))
	assert.Empty(t, p.Items(Filter{Query: "no such thing"}))
	assert.Empty(t, p.Items(Filter{Category: "header", Query: "topics"}))
}

func TestFreeTierLocksPremium(t *testing.T) {
	bus := eventbus.New(nil)
	p := New(newRegistry(t, bus), bus, TierFree)

	var locked int
	for _, it := range p.Items(Filter{}) {
		assert.Equal(t, it.Premium, it.Locked, it.Type)
		if it.Locked {
			locked++
		}
	}
	assert.Positive(t, locked)
}

func TestAddRequestsThroughBuilder(t *testing.T) {
	ctx := context.Background()
	bus := eventbus.New(nil)
	reg := newRegistry(t, bus)
	b := builder.New(reg, state.NewManager(nil), bus, adapters.New(adapters.NewMemory(), types.Config{}))
	require.NoError(t, b.Init(ctx))
	t.Cleanup(b.Close)

	var requests []eventbus.AddRequest
	bus.On(eventbus.ComponentAddRequested, func(_ context.Context, ev eventbus.Event) error {
		requests = append(requests, ev.Payload.(eventbus.AddRequest))
		return nil
	})

	p := New(reg, bus, TierFree)
	require.NoError(t, p.Add(ctx, "hero", nil))
	require.Len(t, b.Document().Components(), 1)
	assert.Equal(t, "hero", b.Document().Components()[0].Type)

	var premium string
	for _, it := range p.Items(Filter{}) {
		if it.Locked {
			premium = it.Type
			break
		}
	}
	require.NotEmpty(t, premium)
	err := p.Add(ctx, premium, nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvariant(err))
	assert.ErrorContains(t, err, "premium")

	assert.True(t, errors.IsNotFound(p.Add(ctx, "carousel", nil)))
	assert.Len(t, requests, 1)
	assert.Len(t, b.Document().Components(), 1)
}

func TestAddReturnsBuilderRejection(t *testing.T) {
	ctx := context.Background()
	bus := eventbus.New(nil)
	reg := newRegistry(t, bus)
	b := builder.New(reg, state.NewManager(nil), bus, adapters.New(adapters.NewMemory(), types.Config{}))
	require.NoError(t, b.Init(ctx))
	t.Cleanup(b.Close)

	p := New(reg, bus, TierFree)
	rev := b.State().Revision
	err := p.Add(ctx, "hero", &types.Position{SectionID: "sec-missing"})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, rev, b.State().Revision)
}

func TestCanAdd(t *testing.T) {
	bus := eventbus.New(nil)
	reg := newRegistry(t, bus)

	free := New(reg, bus, TierFree)
	assert.NoError(t, free.CanAdd("hero"))
	err := free.CanAdd("gallery")
	require.Error(t, err)
	var be *errors.BuilderError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, errors.ErrCodePremiumLocked, be.Code)
	assert.True(t, errors.IsNotFound(free.CanAdd("carousel")))

	assert.NoError(t, New(reg, bus, TierPremium).CanAdd("gallery"))
}
