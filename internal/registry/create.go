package registry

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/types"
)

// IDGenerator produces ids of the form <prefix>-<counter>-<random>. The
// counter makes ids unique within the process, the random part across
// processes sharing a saved document.
type IDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewIDGenerator creates a generator for prefix.
func NewIDGenerator(prefix string) *IDGenerator {
	return &IDGenerator{prefix: prefix}
}

// Next returns a fresh id.
func (g *IDGenerator) Next() string {
	n := g.counter.Add(1)
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%d-%s", g.prefix, n, random)
}

// CreateData is the caller supplied part of a new component. A nil Content
// selects the type's full defaults; otherwise only optional fields are
// filled from defaults.
type CreateData struct {
	ID      string
	Content map[string]any
	Styles  map[string]any
}

// CreateComponent builds and validates a new instance of componentType.
func (r *Registry) CreateComponent(componentType string, data CreateData) (types.Component, error) {
	def, err := r.GetComponent(componentType)
	if err != nil {
		return types.Component{}, err
	}

	var content map[string]any
	if data.Content == nil {
		content = def.FullDefaultContent()
	} else {
		content = types.MergeMaps(def.ContentSchema.OptionalDefaults(), data.Content)
	}

	id := data.ID
	if id == "" {
		id = r.ids.Next()
	}
	now := r.now()

	c := types.Component{
		ID:       id,
		Type:     componentType,
		Content:  types.JSONValues(content),
		Styles:   types.JSONValues(types.MergeMaps(def.FullDefaultStyles(), data.Styles)),
		Metadata: types.Metadata{CreatedAt: now, UpdatedAt: now},
	}

	if err := r.ValidateComponent(c); err != nil {
		return types.Component{}, err
	}

	r.emit(eventbus.ComponentCreated, eventbus.ComponentPayload{Component: c.Clone()})
	return c, nil
}

// ValidateComponent checks an instance. A registered custom validator takes
// the place of the generic checks; otherwise the schema, list and class
// content rules apply. Unknown types are always invalid.
func (r *Registry) ValidateComponent(c types.Component) error {
	r.mutex.RLock()
	def, ok := r.definitions[c.Type]
	custom := r.validators[c.Type]
	class := r.classes[c.Type]
	r.mutex.RUnlock()

	if !ok {
		return errors.NewValidationError(errors.ErrCodeUnknownType,
			fmt.Sprintf("unknown component type %q", c.Type),
			errors.Issue{Path: "type", Message: "is not registered"}).WithComponent(c.ID)
	}
	if c.ID == "" {
		return errors.NewValidationError(errors.ErrCodeValidationFailed, "component has no id",
			errors.Issue{Path: "id", Message: "is required"})
	}

	if custom != nil {
		err := custom(c)
		if err == nil || errors.IsValidation(err) {
			return err
		}
		return errors.NewValidationError(errors.ErrCodeValidationFailed, err.Error()).WithComponent(c.ID)
	}

	issues := def.ContentSchema.Check(c.Content, "content")
	if def.List != nil {
		issues = append(issues, def.List.Check(c.Content, "content")...)
	}
	if cv, ok := class.(ContentValidator); ok {
		issues = append(issues, cv.ValidateContent(c.Content)...)
	}
	issues = append(issues, def.StyleSchema.Check(c.Styles, "styles")...)

	if len(issues) > 0 {
		return errors.NewValidationError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("%s content is invalid", c.Type), issues...).WithComponent(c.ID)
	}
	return nil
}
