// Package taskable resolves the polymorphic (entity_type, entity_id) owner
// pair on tasks into a concrete owning entity. New entity types register a
// resolver instead of subclassing anything.
package taskable

import (
	"errors"
	"fmt"

	"github.com/pulseworks/pulse-tasks/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUnknownEntityType = errors.New("unknown owning entity type")
	ErrEntityNotFound    = errors.New("owning entity not found")
)

// Entity is the capability an owning entity exposes to the task core.
type Entity interface {
	// TypeTag is the entity_type discriminator stored on task rows.
	TypeTag() string
	// Key is the entity_id half of the owner pair.
	Key() uint64
	// DisplayName feeds the task-number entity code derivation.
	DisplayName() string
	// UsesCustomStatuses reports which status representation is
	// authoritative for the entity's tasks.
	UsesCustomStatuses() bool
}

// Resolver loads a concrete entity by id.
type Resolver func(db *gorm.DB, id uint64) (Entity, error)

// Registry maps entity type tags to resolvers.
type Registry struct {
	resolvers map[string]Resolver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		resolvers: make(map[string]Resolver),
	}
}

// Register adds a resolver for a type tag, replacing any previous one.
func (r *Registry) Register(typeTag string, resolver Resolver) {
	r.resolvers[typeTag] = resolver
}

// Resolve loads the owning entity behind a (entity_type, entity_id) pair.
func (r *Registry) Resolve(db *gorm.DB, typeTag string, id uint64) (Entity, error) {
	resolver, ok := r.resolvers[typeTag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, typeTag)
	}
	return resolver(db, id)
}

// DefaultRegistry returns a registry with the built-in entity types
// registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(models.EntityTypePulse, func(db *gorm.DB, id uint64) (Entity, error) {
		var pulse models.Pulse
		if err := db.First(&pulse, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: pulse %d", ErrEntityNotFound, id)
			}
			return nil, fmt.Errorf("failed to resolve pulse %d: %w", id, err)
		}
		return &pulse, nil
	})
	return r
}
