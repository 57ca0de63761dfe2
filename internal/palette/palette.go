// Package palette lists the component types a user can add and originates
// add requests.
package palette

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/types"
)

// Entitlement decides which premium types the current user may add.
type Entitlement interface {
	Allows(def registry.Definition) bool
}

// Tier is an Entitlement by plan name: premium types need a premium tier.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Allows implements Entitlement.
func (t Tier) Allows(def registry.Definition) bool {
	return !def.Premium || t == TierPremium
}

// Item is one palette entry.
type Item struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Category    string   `json:"category"`
	Premium     bool     `json:"premium,omitempty"`
	Locked      bool     `json:"locked,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Filter narrows the listing. Empty fields match everything.
type Filter struct {
	Category string `json:"category,omitempty"`
	Query    string `json:"query,omitempty"`
}

// Palette is the component picker.
type Palette struct {
	registry    *registry.Registry
	bus         *eventbus.Bus
	entitlement Entitlement
}

// New creates a palette. A nil entitlement allows everything.
func New(reg *registry.Registry, bus *eventbus.Bus, ent Entitlement) *Palette {
	if ent == nil {
		ent = TierPremium
	}
	return &Palette{registry: reg, bus: bus, entitlement: ent}
}

// Categories lists the categories that have at least one type.
func (p *Palette) Categories() []string {
	return p.registry.Categories()
}

// Items lists the types matching f, sorted by category then title.
func (p *Palette) Items(f Filter) []Item {
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(f.Query))

	var out []Item
	for _, def := range p.registry.List() {
		if f.Category != "" && !strings.EqualFold(def.Category, f.Category) {
			continue
		}
		if query != "" && !matches(fold, def, query) {
			continue
		}
		out = append(out, Item{
			Type:        def.Type,
			Title:       def.Title,
			Description: def.Description,
			Icon:        def.Icon,
			Category:    def.Category,
			Premium:     def.Premium,
			Locked:      !p.entitlement.Allows(def),
			Tags:        def.Tags,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func matches(fold cases.Caser, def registry.Definition, query string) bool {
	fields := append([]string{def.Type, def.Title, def.Description}, def.Tags...)
	for _, s := range fields {
		if strings.Contains(fold.String(s), query) {
			return true
		}
	}
	return false
}

// CanAdd reports why componentType may not be added: it is unknown, or it
// is premium and the entitlement does not cover it.
func (p *Palette) CanAdd(componentType string) error {
	def, err := p.registry.GetComponent(componentType)
	if err != nil {
		return err
	}
	if !p.entitlement.Allows(def) {
		return errors.NewInvariantViolation(errors.ErrCodePremiumLocked, def.Title+" requires a premium plan").
			WithComponent(componentType)
	}
	return nil
}

// Add requests a new component of componentType at pos, or at the end of
// the document when pos is nil. Unknown and locked types are rejected
// before anything is emitted; a rejection by the builder is returned.
func (p *Palette) Add(ctx context.Context, componentType string, pos *types.Position) error {
	if err := p.CanAdd(componentType); err != nil {
		return err
	}
	return p.bus.Request(ctx, eventbus.ComponentAddRequested, eventbus.AddRequest{Type: componentType, Position: pos})
}
