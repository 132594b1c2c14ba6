package provider

import (
	"bytes"
	"context"
	"sync"

	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"go.uber.org/zap"
)

var _ Provider = &Memory{}

// Memory is a volatile, in-process provider
type Memory struct {
	mx    sync.RWMutex
	blobs map[identifier.Identifier][]byte
	o     options
}

// NewMemory builds an empty in-memory provider
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		blobs: make(map[identifier.Identifier][]byte),
		o:     applyOptions(opts),
	}
}

func (m *Memory) String() string { return "memory" }

// Read content
func (m *Memory) Read(_ context.Context, id identifier.Identifier) ([]byte, error) {
	if data, ok := ReadInline(id); ok {
		return data, nil
	}
	if err := validate(id); err != nil {
		return nil, err
	}

	m.mx.RLock()
	data, ok := m.blobs[id]
	m.mx.RUnlock()
	if !ok {
		return nil, notFound(m, id)
	}
	return append([]byte(nil), data...), nil
}

// Write content
func (m *Memory) Write(_ context.Context, data []byte) (identifier.Identifier, error) {
	id, err := identifier.NewWithAlgorithm(m.o.alg, data)
	if err != nil {
		return identifier.Identifier{}, err
	}

	m.mx.Lock()
	defer m.mx.Unlock()

	if existing, ok := m.blobs[id]; ok {
		if !bytes.Equal(existing, data) {
			return identifier.Identifier{}, status.ErrUnexpectedContent.Wrapf("%v: %v", m, id)
		}
		return id, nil
	}
	m.blobs[id] = append([]byte(nil), data...)
	m.o.l.Debug("memory write", zap.Stringer("id", id), zap.Int("size", len(data)))
	return id, nil
}

// Exists checks for content
func (m *Memory) Exists(_ context.Context, id identifier.Identifier) (bool, error) {
	if id.IsData() {
		return true, nil
	}
	if err := validate(id); err != nil {
		return false, err
	}

	m.mx.RLock()
	defer m.mx.RUnlock()
	_, ok := m.blobs[id]
	return ok, nil
}

// Unwrite removes content. Removing absent content is not an error.
func (m *Memory) Unwrite(_ context.Context, id identifier.Identifier) error {
	if id.IsData() {
		return nil
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	delete(m.blobs, id)
	return nil
}

// SupportsUnwrite is always true
func (m *Memory) SupportsUnwrite() bool { return true }

// Len is the number of stored payloads
func (m *Memory) Len() int {
	m.mx.RLock()
	defer m.mx.RUnlock()
	return len(m.blobs)
}

// Size is the total number of bytes stored
func (m *Memory) Size() int64 {
	m.mx.RLock()
	defer m.mx.RUnlock()
	var size int64
	for _, data := range m.blobs {
		size += int64(len(data))
	}
	return size
}
