package indexer

import (
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/oneconcern/contentstore/pkg/tree"
)

// StaticIndexer indexes fixed-width keys, such as hashes.
//
// Each tree level consumes LayerWidth bytes of the key, so the depth of the tree is static
// and every leaf sits at the same depth.
type StaticIndexer struct {
	engine
	keyWidth int
}

// NewStaticIndexer builds an indexer for keys of exactly keyWidth bytes
func NewStaticIndexer(keyWidth int, opts ...Option) (*StaticIndexer, error) {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	if keyWidth <= 0 || o.layerWidth <= 0 {
		return nil, status.ErrConfiguration.Wrapf("static indexer: key width %d and layer width %d must be positive", keyWidth, o.layerWidth)
	}

	s := &StaticIndexer{keyWidth: keyWidth}
	s.engine = engine{split: s.segments, o: o}
	return s, nil
}

// KeyWidth is the size of the indexed keys
func (s *StaticIndexer) KeyWidth() int { return s.keyWidth }

// Depth is the number of tree levels between the root and the leaves, inclusive
func (s *StaticIndexer) Depth() int {
	return (s.keyWidth + s.o.layerWidth - 1) / s.o.layerWidth
}

func (s *StaticIndexer) segments(key tree.IndexKey) ([]tree.IndexKey, error) {
	if len(key) != s.keyWidth {
		return nil, status.ErrInvalid.Wrapf("static indexer: key %v has %d bytes, expected %d", key, len(key), s.keyWidth)
	}
	segments := make([]tree.IndexKey, 0, s.Depth())
	for i := 0; i < len(key); i += s.o.layerWidth {
		end := i + s.o.layerWidth
		if end > len(key) {
			end = len(key)
		}
		segments = append(segments, key[i:end])
	}
	return segments, nil
}
