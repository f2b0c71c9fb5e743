// Package store persists named blobs (training statistics, performance dictionaries) to a directory on disk.
package store

import (
	"encoding/json"
	"github.com/peterbourgon/diskv"
	"github.com/pkg/errors"
	"strings"
)

// ErrNotFound is returned when a key has not been written to a store.
var ErrNotFound = errors.New("key not found in store")

// FlatTransform places every key directly inside the base directory.
func FlatTransform(string) []string {
	return []string{}
}

// Blobs models a way to persist serialised values under a name.
type Blobs interface {
	Write(key string, b []byte) error
	Read(key string) ([]byte, error)
}

// Directory is a Blobs implementation where each key is one file in a directory.
type Directory struct {
	d *diskv.Diskv
}

// NewDirectory creates a store rooted at dir. The directory is created on the first write.
func NewDirectory(dir string) Directory {
	return Directory{
		d: diskv.New(diskv.Options{
			BasePath:     dir,
			Transform:    FlatTransform,
			CacheSizeMax: 0,
		}),
	}
}

// Write stores b under key, replacing any previous value.
func (s Directory) Write(key string, b []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return errors.Wrapf(s.d.Write(key, b), "could not write %s", key)
}

// Read returns the value stored under key.
func (s Directory) Read(key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if !s.d.Has(key) {
		return nil, errors.Wrap(ErrNotFound, key)
	}
	b, err := s.d.Read(key)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", key)
	}
	return b, nil
}

// Has reports whether key has been written.
func (s Directory) Has(key string) bool {
	return s.d.Has(key)
}

// WriteJSON stores the indented JSON encoding of v under key. Maps are encoded with sorted keys, so equal values always
// produce identical bytes.
func WriteJSON(s Blobs, key string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return errors.Wrapf(err, "could not encode %s", key)
	}
	return s.Write(key, b)
}

// ReadJSON decodes the value stored under key into v.
func ReadJSON(s Blobs, key string, v interface{}) error {
	b, err := s.Read(key)
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal(b, v), "could not decode %s", key)
}

func checkKey(key string) error {
	if len(key) == 0 || strings.ContainsAny(key, `/\`) {
		return errors.Errorf("invalid store key %q", key)
	}
	return nil
}
