package cmd

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/index"
	"github.com/oneconcern/contentstore/pkg/indexer"
	"github.com/oneconcern/contentstore/pkg/provider/config"
	"github.com/oneconcern/contentstore/pkg/tree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// openStack instantiates the providers described by the configuration
func openStack(ctx context.Context, reg prometheus.Registerer) (*config.Stack, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return config.Instantiate(ctx, cfg, config.Logger(logger), config.Registerer(reg))
}

func closeStack(stack *config.Stack) {
	if err := stack.Close(); err != nil {
		logger.Warn("closing content provider", zap.Error(err))
	}
}

func newIndexer() (indexer.BasicIndexer, error) {
	opts := []indexer.Option{indexer.Logger(logger)}
	switch casFlags.index.kind {
	case indexerStringPath:
		return newStringPathIndexer(opts)
	case indexerStatic:
		return newStaticIndexer(opts)
	case indexerComposite:
		first, err := newStaticIndexer(opts)
		if err != nil {
			return nil, err
		}
		second, err := newStringPathIndexer(opts)
		if err != nil {
			return nil, err
		}
		return indexer.NewCompositeIndexer(first, second), nil
	default:
		return nil, fmt.Errorf("unknown indexer %q", casFlags.index.kind)
	}
}

func newStringPathIndexer(opts []indexer.Option) (*indexer.StringPathIndexer, error) {
	if len(casFlags.index.separator) != 1 {
		return nil, fmt.Errorf("the separator must be a single byte, got %q", casFlags.index.separator)
	}
	return indexer.NewStringPathIndexer(append(opts,
		indexer.Separator(casFlags.index.separator[0]),
		indexer.KeepEmptyBranches(casFlags.index.keepEmpty),
	)...), nil
}

func newStaticIndexer(opts []indexer.Option) (*indexer.StaticIndexer, error) {
	return indexer.NewStaticIndexer(casFlags.index.keyWidth, append(opts,
		indexer.LayerWidth(casFlags.index.layerWidth),
	)...)
}

// parseKey reads keys as paths for a stringpath indexer, as hex for a static indexer,
// or as "hex:path" for a composite indexer
func parseKey(s string) (tree.IndexKey, error) {
	switch casFlags.index.kind {
	case indexerStatic:
		return parseHexKey(s)
	case indexerComposite:
		first, path, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("composite keys are written hex:path, got %q", s)
		}
		key, err := parseHexKey(first)
		if err != nil {
			return nil, err
		}
		return tree.Compose(key, tree.IndexKey(path)), nil
	default:
		return tree.IndexKey(s), nil
	}
}

func parseHexKey(s string) (tree.IndexKey, error) {
	key, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("static keys are hex encoded: %w", err)
	}
	return key, nil
}

func formatKey(k tree.IndexKey) string {
	switch casFlags.index.kind {
	case indexerStatic:
		return hex.EncodeToString(k)
	case indexerComposite:
		first, second, err := k.Decompose()
		if err != nil {
			return hex.EncodeToString(k)
		}
		return hex.EncodeToString(first) + ":" + string(second)
	default:
		return string(k)
	}
}

// readRoot gets the root of the index from the --root flag, or from the root file.
// A missing root file means an empty index.
func readRoot() (tree.TreeIdentifier, error) {
	if casFlags.index.root != "" {
		return tree.ParseTreeIdentifier(casFlags.index.root)
	}
	b, err := os.ReadFile(casFlags.root.rootFile)
	if os.IsNotExist(err) {
		return tree.Empty, nil
	}
	if err != nil {
		return tree.Empty, err
	}
	return tree.ParseTreeIdentifier(string(bytes.TrimSpace(b)))
}

func writeRoot(root tree.TreeIdentifier) error {
	return os.WriteFile(casFlags.root.rootFile, []byte(root.String()+"\n"), 0600)
}

// openIndex builds an index over some provider, starting from the current root
func openIndex(stack *config.Stack) (*index.Index, indexer.BasicIndexer, error) {
	ixr, err := newIndexer()
	if err != nil {
		return nil, nil, err
	}
	root, err := readRoot()
	if err != nil {
		return nil, nil, err
	}
	return index.New(stack, ixr, index.NewSharedTreeIdentifier(root), index.Logger(logger)), ixr, nil
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

func writeOutput(data []byte) error {
	if casFlags.content.output == "" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(casFlags.content.output, data, 0600)
}

func parseIdentifiers(args []string) ([]identifier.Identifier, error) {
	ids := make([]identifier.Identifier, 0, len(args))
	for _, arg := range args {
		id, err := identifier.Parse(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
