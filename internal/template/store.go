// Package template holds the cover template shared by every request.
package template

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/juju/errgo"
)

// Store is a read-only template document. Its bytes may be read by any
// number of goroutines and must not be modified.
type Store struct {
	path string
	file *os.File
	mmap mmap.MMap
	data []byte
}

// Open maps the template at path into memory.
func Open(path string) (*Store, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errgo.Mask(err, os.IsNotExist)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errgo.Mask(err)
	}
	if info.Size() == 0 {
		file.Close()
		return nil, errgo.Newf("template %s is empty", path)
	}

	m, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		file.Close()
		return nil, errgo.Notef(err, "map template %s", path)
	}

	return &Store{path: path, file: file, mmap: m, data: m}, nil
}

// FromBytes wraps data that is already in memory.
func FromBytes(data []byte) *Store {
	return &Store{path: "<memory>", data: data}
}

// Path returns where the template was read from.
func (s *Store) Path() string { return s.path }

// Bytes returns the template document.
func (s *Store) Bytes() []byte { return s.data }

// Close unmaps the template. Bytes must not be used afterwards.
func (s *Store) Close() error {
	if s.file == nil {
		// nothing mapped
		return nil
	}

	err := s.mmap.Unmap()
	if err != nil {
		return errgo.Mask(err)
	}
	s.data = nil

	err = s.file.Close()
	s.file = nil
	if err != nil {
		return errgo.Mask(err)
	}
	return nil
}
