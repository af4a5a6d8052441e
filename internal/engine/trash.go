package engine

import "time"

// TrashObject wraps a removed entity with its removal timestamp. Removed
// objects stay resolvable until the background sweep evicts them, which
// keeps references held by in-flight messages valid.
type TrashObject struct {
	storedObject
	timestamp time.Time
	object    StoredObject
}

func newTrashObject(object StoredObject) *TrashObject {
	return &TrashObject{
		storedObject: newStoredObject(),
		timestamp:    time.Now(),
		object:       object,
	}
}

// RestoreTrashObject rebuilds a trash wrapper from persisted state.
func RestoreTrashObject(id string, timestamp time.Time, object StoredObject) *TrashObject {
	object.setMarkedForRemoval(true)
	return &TrashObject{
		storedObject: storedObject{id: id},
		timestamp:    timestamp,
		object:       object,
	}
}

// Timestamp is the moment the wrapped object was removed.
func (t *TrashObject) Timestamp() time.Time { return t.timestamp }

// Object returns the wrapped entity.
func (t *TrashObject) Object() StoredObject { return t.object }
