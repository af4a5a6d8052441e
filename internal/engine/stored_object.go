package engine

import "github.com/google/uuid"

// StoredObject is implemented by every entity the engine persists through a
// DAO. Identity is a uuid assigned at construction and never changed.
type StoredObject interface {
	UUID() string
	MarkedForRemoval() bool
	setMarkedForRemoval(removed bool)
}

// storedObject is the embeddable base for persisted entities.
type storedObject struct {
	id      string
	removed bool
}

func newStoredObject() storedObject {
	return storedObject{id: uuid.NewString()}
}

func (s *storedObject) UUID() string { return s.id }

// MarkedForRemoval reports whether the object has been moved to trash.
// Marked objects are filtered from list accessors but stay resolvable by
// uuid until the trash sweep evicts them.
func (s *storedObject) MarkedForRemoval() bool { return s.removed }

func (s *storedObject) setMarkedForRemoval(removed bool) { s.removed = removed }
