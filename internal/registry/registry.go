// Package registry holds the component type table: definitions, runtime
// classes and custom validators, keyed by type. The table is filled once at
// startup and sealed before the builder starts.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/schema"
	"github.com/conneroisu/mediakit/internal/types"
)

// Definition is a component type's registry entry. It is immutable once
// registered.
type Definition struct {
	Type           string         `json:"type" yaml:"type"`
	Title          string         `json:"title" yaml:"title"`
	Description    string         `json:"description,omitempty" yaml:"description,omitempty"`
	Icon           string         `json:"icon,omitempty" yaml:"icon,omitempty"`
	Category       string         `json:"category,omitempty" yaml:"category,omitempty"`
	ContentSchema  *schema.Schema `json:"contentSchema" yaml:"contentSchema"`
	StyleSchema    *schema.Schema `json:"styleSchema,omitempty" yaml:"styleSchema,omitempty"`
	DefaultContent map[string]any `json:"defaultContent,omitempty" yaml:"defaultContent,omitempty"`
	DefaultStyles  map[string]any `json:"defaultStyles,omitempty" yaml:"defaultStyles,omitempty"`
	// List marks content that stores a numbered list (topic_1, topic_2...).
	List    *schema.List `json:"list,omitempty" yaml:"list,omitempty"`
	Premium bool         `json:"premium,omitempty" yaml:"premium,omitempty"`
	Tags    []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// FullDefaultContent is the content of a component created without content.
func (d Definition) FullDefaultContent() map[string]any {
	return types.MergeMaps(d.ContentSchema.Defaults(), d.DefaultContent)
}

// FullDefaultStyles is the styles of a component created without styles.
func (d Definition) FullDefaultStyles() map[string]any {
	return types.MergeMaps(d.StyleSchema.Defaults(), d.DefaultStyles)
}

// Class is a component runtime: it renders instances of one type.
type Class interface {
	Definition() Definition
	Render(c types.Component) templ.Component
}

// ContentValidator is implemented by classes with rules beyond the schema.
type ContentValidator interface {
	ValidateContent(content map[string]any) []errors.Issue
}

// InlineEditable is implemented by classes whose text fields can be edited
// in place on the canvas.
type InlineEditable interface {
	InlineFields() []string
}

// Validator is a custom, type-specific component check.
type Validator func(c types.Component) error

// Registry is the process-wide component type table.
type Registry struct {
	definitions map[string]Definition
	classes     map[string]Class
	validators  map[string]Validator
	order       []string
	sealed      bool
	mutex       sync.RWMutex

	bus    *eventbus.Bus
	logger logging.Logger
	ids    *IDGenerator
	now    func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithIDGenerator replaces the default id generator.
func WithIDGenerator(g *IDGenerator) Option {
	return func(r *Registry) { r.ids = g }
}

// New creates an empty registry. bus may be nil.
func New(bus *eventbus.Bus, logger logging.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = logging.Discard()
	}
	r := &Registry{
		definitions: make(map[string]Definition),
		classes:     make(map[string]Class),
		validators:  make(map[string]Validator),
		bus:         bus,
		logger:      logger.WithComponent("registry"),
		ids:         NewIDGenerator("cmp"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IDs returns the generator used for new components.
func (r *Registry) IDs() *IDGenerator { return r.ids }

func (r *Registry) emit(event string, payload any) {
	if r.bus != nil {
		r.bus.Emit(context.Background(), event, payload)
	}
}

// Register validates def against the meta-schema and stores it.
func (r *Registry) Register(componentType string, def Definition) error {
	if def.Type == "" {
		def.Type = componentType
	}
	if issues := validateDefinition(componentType, def); len(issues) > 0 {
		return errors.NewValidationError(errors.ErrCodeInvalidSchema,
			fmt.Sprintf("invalid definition for %q", componentType), issues...).WithComponent(componentType)
	}

	r.mutex.Lock()
	if r.sealed {
		r.mutex.Unlock()
		return errors.NewInvariantViolation(errors.ErrCodeRegistrySealed, "registry is sealed").WithComponent(componentType)
	}
	if _, exists := r.definitions[componentType]; exists {
		r.mutex.Unlock()
		return errors.NewInvariantViolation(errors.ErrCodeDuplicateType,
			fmt.Sprintf("component type %q already registered", componentType)).WithComponent(componentType)
	}
	r.definitions[componentType] = def
	r.order = append(r.order, componentType)
	r.mutex.Unlock()

	r.logger.Debug(context.Background(), "Registered component type", "type", componentType)
	r.emit(eventbus.ComponentRegistered, def)
	return nil
}

// RegisterClass stores a runtime class for componentType. When no definition
// exists yet, one is derived from the class.
func (r *Registry) RegisterClass(componentType string, class Class) error {
	r.mutex.RLock()
	sealed := r.sealed
	_, hasClass := r.classes[componentType]
	_, hasDef := r.definitions[componentType]
	r.mutex.RUnlock()

	if sealed {
		return errors.NewInvariantViolation(errors.ErrCodeRegistrySealed, "registry is sealed").WithComponent(componentType)
	}
	if hasClass {
		return errors.NewInvariantViolation(errors.ErrCodeDuplicateType,
			fmt.Sprintf("class for %q already registered", componentType)).WithComponent(componentType)
	}
	if !hasDef {
		if err := r.Register(componentType, class.Definition()); err != nil {
			return err
		}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.classes[componentType] = class
	return nil
}

// RegisterValidator installs a custom validator for componentType.
func (r *Registry) RegisterValidator(componentType string, v Validator) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.sealed {
		return errors.NewInvariantViolation(errors.ErrCodeRegistrySealed, "registry is sealed").WithComponent(componentType)
	}
	r.validators[componentType] = v
	return nil
}

// Seal freezes the table. Registration afterwards fails.
func (r *Registry) Seal() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.sealed = true
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.sealed
}

// GetComponent returns the definition for componentType.
func (r *Registry) GetComponent(componentType string) (Definition, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	def, ok := r.definitions[componentType]
	if !ok {
		return Definition{}, errors.ErrUnknownType(componentType)
	}
	return def, nil
}

// GetComponentClass returns the runtime class for componentType.
func (r *Registry) GetComponentClass(componentType string) (Class, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	class, ok := r.classes[componentType]
	if !ok {
		return nil, errors.ErrUnknownType(componentType)
	}
	return class, nil
}

// Has reports whether componentType is registered.
func (r *Registry) Has(componentType string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.definitions[componentType]
	return ok
}

// List returns every definition in registration order.
func (r *Registry) List() []Definition {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.definitions[t])
	}
	return out
}

// Categories returns the sorted set of definition categories.
func (r *Registry) Categories() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, def := range r.definitions {
		if def.Category != "" && !seen[def.Category] {
			seen[def.Category] = true
			out = append(out, def.Category)
		}
	}
	sort.Strings(out)
	return out
}

// Count returns the number of registered types.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.definitions)
}

func validateDefinition(componentType string, def Definition) []errors.Issue {
	var issues []errors.Issue
	if componentType == "" {
		issues = append(issues, errors.Issue{Path: "type", Message: "is required"})
	} else if def.Type != componentType {
		issues = append(issues, errors.Issue{Path: "type", Message: fmt.Sprintf("%q does not match %q", def.Type, componentType)})
	}
	if def.ContentSchema == nil {
		issues = append(issues, errors.Issue{Path: "contentSchema", Message: "is required"})
		return issues
	}
	issues = append(issues, schema.ValidateSchema(def.ContentSchema, "contentSchema")...)
	if def.StyleSchema != nil {
		issues = append(issues, schema.ValidateSchema(def.StyleSchema, "styleSchema")...)
	}
	if def.List != nil && def.List.Prefix == "" {
		issues = append(issues, errors.Issue{Path: "list.prefix", Message: "is required"})
	}
	if len(issues) > 0 {
		return issues
	}

	content := def.FullDefaultContent()
	issues = append(issues, def.ContentSchema.Check(content, "defaultContent")...)
	if def.List != nil {
		issues = append(issues, def.List.Check(content, "defaultContent")...)
	}
	issues = append(issues, def.StyleSchema.Check(def.FullDefaultStyles(), "defaultStyles")...)
	return issues
}
