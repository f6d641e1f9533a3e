// Package state persists which catalog records the mirror has uploaded.
package state

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/openaerialmap/oam-mirror/pkg/blob"
)

// Key is where the sync state lives in the bucket.
const Key = "state.json"

// Tracker maps record ids to the version marker they were last uploaded
// with. It's not safe for concurrent use; the sync run owns it exclusively.
type Tracker struct {
	store blob.Store
	state map[string]string
}

// NewTracker creates a Tracker backed by the given store.
func NewTracker(store blob.Store) *Tracker {
	return &Tracker{store: store, state: map[string]string{}}
}

// CorruptError means the persisted state exists but can't be parsed. This
// is fatal: syncing against garbage state would re-upload or skip
// arbitrary records.
type CorruptError struct {
	Err error
}

func (err CorruptError) Error() string {
	return fmt.Sprintf("corrupt sync state: %s", err.Err)
}

// FriendlyMessage implements the interface checked by
// errors.GetPrintableMessage.
func (err CorruptError) FriendlyMessage() string {
	return fmt.Sprintf("The sync state object (%s) exists but can't be parsed:\n"+
		"%s\n\n"+
		"Restore it from a backup, or delete it to force a full re-sync.",
		Key, err.Err)
}

// Load fetches the persisted state. A missing object or a transport error
// degrades to an empty state, which re-uploads everything and is safe. An
// object that exists but doesn't parse is a CorruptError.
func (t *Tracker) Load() error {
	data, found, err := t.store.Get(Key)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch sync state, starting fresh")
		t.state = map[string]string{}
		return nil
	}
	if !found {
		log.Info("No existing state found, starting fresh")
		t.state = map[string]string{}
		return nil
	}

	state := map[string]string{}
	if err := json.Unmarshal(data, &state); err != nil {
		return CorruptError{Err: err}
	}
	t.state = state
	log.Infof("Loaded state with %d images", len(state))
	return nil
}

// Save persists the state. Callers must only save after every upload the
// state describes has succeeded.
func (t *Tracker) Save() error {
	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return err
	}
	if err := t.store.Put(Key, data, "application/json"); err != nil {
		return err
	}
	log.Infof("Saved state with %d images", len(t.state))
	return nil
}

// NeedsUpdate reports whether the record with the given id must be
// re-uploaded. An empty stored marker counts as never-uploaded.
func (t *Tracker) NeedsUpdate(id, marker string) bool {
	stored := t.state[id]
	if stored == "" {
		return true
	}
	return stored != marker
}

// MarkUpdated records that the given record was uploaded at the given
// marker. The change isn't persisted until Save.
func (t *Tracker) MarkUpdated(id, marker string) {
	t.state[id] = marker
}

// IDs returns the tracked record ids, in no particular order.
func (t *Tracker) IDs() []string {
	ids := make([]string, 0, len(t.state))
	for id := range t.state {
		ids = append(ids, id)
	}
	return ids
}
