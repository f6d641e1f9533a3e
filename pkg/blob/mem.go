package blob

import (
	"sort"
	"strings"
	"sync"
)

// MemObject is an object held by a MemStore.
type MemObject struct {
	Data        []byte
	ContentType string
}

// MemStore is an in-memory Store. It backs the unit tests the same way
// afero's MemMapFs stands in for the real filesystem.
type MemStore struct {
	// GetErr and PutErr, when set, inject failures for matching keys.
	GetErr func(key string) error
	PutErr func(key string) error

	mu       sync.Mutex
	objects  map[string]MemObject
	putOrder []string
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{objects: map[string]MemObject{}}
}

// Get fetches the object at the given key. A missing key isn't an error.
func (s *MemStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GetErr != nil {
		if err := s.GetErr(key); err != nil {
			return nil, false, err
		}
	}

	object, ok := s.objects[key]
	if !ok {
		return nil, false, nil
	}
	return object.Data, true, nil
}

// Put writes the object at the given key.
func (s *MemStore) Put(key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PutErr != nil {
		if err := s.PutErr(key); err != nil {
			return err
		}
	}

	s.objects[key] = MemObject{Data: data, ContentType: contentType}
	s.putOrder = append(s.putOrder, key)
	return nil
}

// List returns all keys under the given prefix, sorted.
func (s *MemStore) List(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Object returns the stored object for the given key.
func (s *MemStore) Object(key string) (MemObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	object, ok := s.objects[key]
	return object, ok
}

// PutOrder returns the keys written so far, in write order.
func (s *MemStore) PutOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.putOrder...)
}
