package indexer

import (
	"bytes"
	"context"
	"unicode/utf8"

	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/oneconcern/contentstore/pkg/tree"
)

// StringPathIndexer indexes separated paths, like "dir/sub/name".
//
// Each path segment is one tree level. Directory segments keep their trailing separator,
// so "a" and "a/" are distinct local keys and a name may be both a file and a directory.
//
// Paths must be valid UTF-8. A leading separator and trailing separators are dropped,
// so "/a/b", "a/b" and "a/b/" address the same leaf, enumerated as "a/b".
type StringPathIndexer struct {
	engine
}

// NewStringPathIndexer builds a path indexer
func NewStringPathIndexer(opts ...Option) *StringPathIndexer {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	s := &StringPathIndexer{}
	s.engine = engine{split: s.segments, o: o}
	return s
}

// Separator of path segments
func (s *StringPathIndexer) Separator() byte { return s.o.separator }

// sanitize drops one leading separator and the trailing separators of a path
func (s *StringPathIndexer) sanitize(key tree.IndexKey) (tree.IndexKey, error) {
	if !utf8.Valid(key) {
		return nil, status.ErrInvalid.Wrapf("path %q is not valid UTF-8", string(key))
	}
	if len(key) > 0 && key[0] == s.o.separator {
		key = key[1:]
	}
	return bytes.TrimRight(key, string(s.o.separator)), nil
}

func (s *StringPathIndexer) segments(key tree.IndexKey) ([]tree.IndexKey, error) {
	path, err := s.sanitize(key)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, status.ErrInvalid.Wrapf("empty path %q", string(key))
	}
	segments := make([]tree.IndexKey, 0, bytes.Count(path, []byte{s.o.separator})+1)
	rest := path
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, s.o.separator)
		if i == 0 {
			return nil, status.ErrInvalid.Wrapf("path %q has an empty segment", string(key))
		}
		if i < 0 {
			segments = append(segments, rest)
			break
		}
		segments = append(segments, rest[:i+1])
		rest = rest[i+1:]
	}
	return segments, nil
}

// DirEntry is an entry of a directory listing
type DirEntry struct {
	// Key is the full path of the entry. Directory keys end with the separator.
	Key  tree.IndexKey
	Name string
	Node tree.Node
}

// IsDir tells if the entry is a directory
func (d DirEntry) IsDir() bool { return d.Node.IsBranch() }

// List the entries of a directory, in key order. The empty path, or a lone separator,
// lists the root. Leading and trailing separators on the directory path are optional.
func (s *StringPathIndexer) List(ctx context.Context, p provider.Provider, root tree.TreeIdentifier, dir string) ([]DirEntry, error) {
	path, err := s.sanitize(tree.IndexKey(dir))
	if err != nil {
		return nil, err
	}

	var prefix tree.IndexKey
	id := root
	if len(path) > 0 {
		segments, err := s.segments(path)
		if err != nil {
			return nil, err
		}
		segments[len(segments)-1] = append(segments[len(segments)-1].Clone(), s.o.separator)
		prefix = append(path.Clone(), s.o.separator)

		for _, segment := range segments {
			t, err := tree.Read(ctx, p, id)
			if err != nil {
				return nil, err
			}
			node, found := t.Get(segment)
			if !found || !node.IsBranch() {
				return nil, status.ErrNotFound.Wrapf("directory %q", dir)
			}
			id = node.Branch()
		}
	}

	t, err := tree.Read(ctx, p, id)
	if err != nil {
		return nil, err
	}
	entries := make([]DirEntry, 0, t.Len())
	for _, c := range t.Children() {
		name := c.Key
		if c.Node.IsBranch() {
			name = name[:len(name)-1]
		}
		entries = append(entries, DirEntry{
			Key:  tree.Join(prefix, c.Key),
			Name: string(name),
			Node: c.Node,
		})
	}
	return entries, nil
}
