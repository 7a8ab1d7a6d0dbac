// Package collection persists named JSON arrays as files. Every mutation reads
// the whole array, changes it and rewrites the whole file, which keeps the
// format shared with the clients and sync data written by older releases.
package collection

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"
)

// ErrCorrupt marks a collection file that is not a JSON array. Reads recover
// from it by returning an empty array; it is only ever logged.
var ErrCorrupt = errors.New("collection file is corrupt")

var emptyArray = []byte("[]")

// Store gives access to the collections under one directory. Each collection
// name has its own lock, so read-modify-write cycles on one collection are
// serialized within the process.
type Store struct {
	fs    billy.Filesystem
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store on top of fs
func NewStore(fs billy.Filesystem) *Store {
	return &Store{
		fs:    fs,
		locks: map[string]*sync.Mutex{},
	}
}

// NewDirStore creates a store rooted at an OS directory, creating it if needed
func NewDirStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return NewStore(osfs.New(dir)), nil
}

func (s *Store) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// Read returns the raw JSON array stored under name. A missing, empty or
// malformed file reads as "[]".
func (s *Store) Read(name string) ([]byte, error) {
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	return s.readLocked(name)
}

// Write replaces the collection with data, which must be a JSON array
func (s *Store) Write(name string, data []byte) error {
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	return s.writeLocked(name, data)
}

// Update runs fn on the current contents of the collection and writes back
// whatever it returns, holding the collection lock for the whole cycle.
// Nothing is written when fn fails.
func (s *Store) Update(name string, fn func(current []byte) ([]byte, error)) error {
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	current, err := s.readLocked(name)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	return s.writeLocked(name, next)
}

func (s *Store) readLocked(name string) ([]byte, error) {
	content, err := util.ReadFile(s.fs, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyArray, nil
		}
		return nil, fmt.Errorf("failed to read collection %s: %w", name, err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(content, &items); err != nil {
		logrus.WithError(fmt.Errorf("%w: %v", ErrCorrupt, err)).
			WithField("collection", name).
			Warn("Treating unreadable collection as empty")
		return emptyArray, nil
	}
	if items == nil {
		return emptyArray, nil
	}
	return content, nil
}

func (s *Store) writeLocked(name string, data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("collection %s must be a JSON array: %w", name, err)
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	body, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", name, err)
	}

	if dir := path.Dir(name); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", name, err)
		}
	}

	tmp := name + ".tmp"
	if err := util.WriteFile(s.fs, tmp, body, 0o600); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to write collection %s: %w", name, err)
	}
	if err := s.fs.Rename(tmp, name); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace collection %s: %w", name, err)
	}

	logrus.WithFields(logrus.Fields{
		"collection": name,
		"items":      len(items),
	}).Debug("Collection written")
	return nil
}

// ReadAs decodes the collection into a slice of T. Elements that do not fit
// T are left out.
func ReadAs[T any](s *Store, name string) ([]T, error) {
	raw, err := s.Read(name)
	if err != nil {
		return nil, err
	}
	items, _ := decode[T](name, raw)
	return items, nil
}

// UpdateAs is Update with the array decoded into a slice of T. Elements that
// do not fit T are never handed to fn; they are written back unchanged at
// their original positions.
func UpdateAs[T any](s *Store, name string, fn func(items []T) ([]T, error)) error {
	return s.Update(name, func(current []byte) ([]byte, error) {
		items, slots := decode[T](name, current)
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		return merge(slots, next)
	})
}

// decode splits the array into the elements that decode as T and a slot list
// of the same length as the array, holding the raw element wherever it did
// not decode and nil wherever it did.
func decode[T any](name string, raw []byte) ([]T, []json.RawMessage) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		logrus.WithError(fmt.Errorf("%w: %v", ErrCorrupt, err)).
			WithField("collection", name).
			Warn("Treating unreadable collection as empty")
		return []T{}, nil
	}

	items := make([]T, 0, len(elements))
	slots := make([]json.RawMessage, len(elements))
	for i, element := range elements {
		var item T
		if err := json.Unmarshal(element, &item); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"collection": name,
				"index":      i,
			}).Warn("Skipping unreadable collection element")
			slots[i] = element
			continue
		}
		items = append(items, item)
	}
	return items, slots
}

// merge lays next over the decoded slots in order, keeps the raw elements in
// place and appends whatever is left of next.
func merge[T any](slots []json.RawMessage, next []T) ([]byte, error) {
	out := make([]json.RawMessage, 0, len(slots)+len(next))
	k := 0
	for _, slot := range slots {
		if slot == nil {
			if k == len(next) {
				continue
			}
			encoded, err := json.Marshal(next[k])
			if err != nil {
				return nil, err
			}
			slot = encoded
			k++
		}
		out = append(out, slot)
	}
	for ; k < len(next); k++ {
		encoded, err := json.Marshal(next[k])
		if err != nil {
			return nil, err
		}
		out = append(out, encoded)
	}
	return json.Marshal(out)
}
