package datafiles

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/weightgate/weightgate/internal/logx"
)

var log = logx.GetLogger("datafiles")

// Tree is a datafile's generic, schema-agnostic parse: a JSON object
// decoded with json.Number preserved so weight fields can be rewritten
// without the rest of the document losing precision on round-trip.
type Tree map[string]interface{}

// ErrNotFound is returned by Get for a path that was never loaded.
var ErrNotFound = fmt.Errorf("datafile not found")

// Repository is the datafile catalogue (C2): it loads every "*.json" file
// under a root directory, keyed by its path relative to that root, and
// serves the parsed, read-only result until Load is called again.
type Repository struct {
	root string
	// VariantsKey is the object key under each feature that holds the
	// variant array. Parameterized per SPEC_FULL §9's schema-variants
	// decision instead of a hardcoded "variations" literal.
	VariantsKey string

	cache atomic.Pointer[xsync.MapOf[string, Tree]]
}

// NewRepository constructs a Repository rooted at dir. Call Load before
// serving any requests.
func NewRepository(dir, variantsKey string) *Repository {
	if variantsKey == "" {
		variantsKey = "variations"
	}
	r := &Repository{root: dir, VariantsKey: variantsKey}
	r.cache.Store(xsync.NewMapOf[string, Tree]())
	return r
}

// Load walks the repository's root directory and populates the cache. It
// fails if the root directory doesn't exist; individual unparsable files
// are logged and skipped rather than aborting the whole load.
func (r *Repository) Load() error {
	info, err := os.Stat(r.root)
	if err != nil {
		return fmt.Errorf("datafiles: root directory %q: %w", r.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("datafiles: root %q is not a directory", r.root)
	}

	next := xsync.NewMapOf[string, Tree]()
	count := 0

	err = filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		tree, err := parseFile(path)
		if err != nil {
			log.Warnf("skipping %s: %v", path, err)
			return nil
		}

		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return err
		}
		next.Store(filepath.ToSlash(rel), tree)
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("datafiles: walk %q: %w", r.root, err)
	}

	r.cache.Store(next)
	log.Infof("loaded %d datafile(s) from %s", count, r.root)
	return nil
}

func parseFile(path string) (Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var tree Tree
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	// Minimal sanity check: a top-level "features" object. Its absence
	// doesn't reject the file, it just means there is nothing for the
	// overlay/scheduler to act on — the file is opaque pass-through.
	if _, ok := tree["features"]; !ok {
		log.Debugf("%s has no top-level \"features\" object, treating as opaque", path)
	}

	return tree, nil
}

// Get returns the parsed datafile at path, or ErrNotFound.
func (r *Repository) Get(path string) (Tree, error) {
	tree, ok := r.cache.Load().Load(path)
	if !ok {
		return nil, ErrNotFound
	}
	return tree, nil
}

// Paths returns every currently loaded datafile path, for the stats
// endpoint's "all datafiles" mode.
func (r *Repository) Paths() []string {
	m := r.cache.Load()
	paths := make([]string, 0, m.Size())
	m.Range(func(key string, _ Tree) bool {
		paths = append(paths, key)
		return true
	})
	return paths
}
