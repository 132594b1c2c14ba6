package index

import (
	"sync"

	"github.com/oneconcern/contentstore/pkg/tree"
)

// SharedTreeIdentifier is the publication point of the root of an index.
//
// It is safe for concurrent use. Publications are not serialized against the computation
// of the root they publish: when writers race, the last publication wins. Use Update to
// compute and publish a root while holding off other updates.
type SharedTreeIdentifier struct {
	writer  sync.Mutex
	mx      sync.RWMutex
	root    tree.TreeIdentifier
	version uint64
}

// NewSharedTreeIdentifier builds a shared root, initially pointing to some tree
func NewSharedTreeIdentifier(root tree.TreeIdentifier) *SharedTreeIdentifier {
	return &SharedTreeIdentifier{root: root}
}

// Get the current root
func (s *SharedTreeIdentifier) Get() tree.TreeIdentifier {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.root
}

// Set publishes a new root
func (s *SharedTreeIdentifier) Set(root tree.TreeIdentifier) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.publish(root)
}

// Swap publishes a new root and returns the previous one
func (s *SharedTreeIdentifier) Swap(root tree.TreeIdentifier) tree.TreeIdentifier {
	s.mx.Lock()
	defer s.mx.Unlock()
	previous := s.root
	s.publish(root)
	return previous
}

// Update computes and publishes a new root from the current one, excluding other updates.
// Readers are not blocked while fn runs. Nothing is published when fn fails.
func (s *SharedTreeIdentifier) Update(fn func(tree.TreeIdentifier) (tree.TreeIdentifier, error)) (tree.TreeIdentifier, error) {
	s.writer.Lock()
	defer s.writer.Unlock()
	current := s.Get()
	root, err := fn(current)
	if err != nil {
		return current, err
	}
	s.Set(root)
	return root, nil
}

// Version counts the publications of a root which differs from the previous one
func (s *SharedTreeIdentifier) Version() uint64 {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.version
}

func (s *SharedTreeIdentifier) publish(root tree.TreeIdentifier) {
	if root != s.root {
		s.version++
	}
	s.root = root
}
