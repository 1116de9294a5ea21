// Package catalog supplies the raw per-category candidate pools the engine
// works on. Pools come from a YAML seed file: a default set, plus entries
// keyed by artist/title with optional aliases.
//
// A Catalog is immutable after construction and safe for concurrent use.
// Every returned RecommendationsData is a fresh deep copy.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/search"
)

// Limits of the basic search used by Supplement and Related.
const (
	SupplementLimit     = 5
	DefaultRelatedLimit = 6
)

// ErrEmptyDefault is returned when the seed has no default items.
var ErrEmptyDefault = errors.New("catalog: default pools are empty")

// Entry is one keyed seed record.
type Entry struct {
	Key     string                     `yaml:"key"`
	Aliases []string                   `yaml:"aliases,omitempty"`
	Pools   domain.RecommendationsData `yaml:"pools"`
}

// File is the on-disk layout of the seed.
type File struct {
	Popular map[domain.Category][]string `yaml:"popular,omitempty"`
	Default domain.RecommendationsData   `yaml:"default"`
	Entries []Entry                      `yaml:"entries"`
}

type entry struct {
	Entry
	names []string // normalized key and aliases
}

// Catalog answers pool lookups for queries.
type Catalog struct {
	def     domain.RecommendationsData
	entries []entry
	byKey   map[string]int
	index   search.Index
	popular map[domain.Category][]string
}

// Load reads and validates the seed file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML seed.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	return New(f)
}

// New validates f and builds a Catalog from it.
func New(f File) (*Catalog, error) {
	if f.Default.Total() == 0 {
		return nil, ErrEmptyDefault
	}
	if err := checkPools("default", f.Default); err != nil {
		return nil, err
	}
	for c := range f.Popular {
		if _, ok := domain.ParseCategory(string(c)); !ok {
			return nil, fmt.Errorf("catalog: popular: unknown category %q", c)
		}
	}

	c := &Catalog{
		def:     fill(f.Default),
		byKey:   make(map[string]int, len(f.Entries)),
		popular: make(map[domain.Category][]string, len(f.Popular)),
	}
	for cat, terms := range f.Popular {
		c.popular[cat] = append([]string(nil), terms...)
	}

	docs := make([]search.Document, 0, len(f.Entries))
	for _, e := range f.Entries {
		key := Normalize(e.Key)
		if key == "" {
			return nil, errors.New("catalog: entry with blank key")
		}
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate entry %q", e.Key)
		}
		if err := checkPools(fmt.Sprintf("entry %q", e.Key), e.Pools); err != nil {
			return nil, err
		}

		names := []string{key}
		for _, a := range e.Aliases {
			if n := Normalize(a); n != "" {
				names = append(names, n)
			}
		}
		c.byKey[key] = len(c.entries)
		c.entries = append(c.entries, entry{Entry: Entry{Key: e.Key, Aliases: e.Aliases, Pools: fill(e.Pools)}, names: names})
		docs = append(docs, search.Document{Key: key, Text: indexText(e)})
	}
	c.index = search.NewIndex(docs, search.WithStemming())
	return c, nil
}

func checkPools(where string, pools domain.RecommendationsData) error {
	for cat, items := range pools {
		if _, ok := domain.ParseCategory(string(cat)); !ok {
			return fmt.Errorf("catalog: %s: unknown category %q", where, cat)
		}
		for i, it := range items {
			if strings.TrimSpace(it.Name) == "" {
				return fmt.Errorf("catalog: %s: %s[%d] has no name", where, cat, i)
			}
		}
	}
	return nil
}

// indexText is what the fuzzy fallback matches against: key, aliases and the
// names of the entry's items.
func indexText(e Entry) string {
	parts := append([]string{e.Key}, e.Aliases...)
	for _, cat := range domain.Categories() {
		for _, it := range e.Pools[cat] {
			parts = append(parts, it.Name)
		}
	}
	return strings.Join(parts, " ")
}

// Normalize is search.Normalize; catalog keys and lookups share it with the
// engine so both see the same query.
func Normalize(s string) string { return search.Normalize(s) }

// Len reports the number of keyed entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Keys returns the entry keys in file order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Key
	}
	return out
}

// Default returns a copy of the default pools.
func (c *Catalog) Default() domain.RecommendationsData { return fill(c.def) }

// Lookup returns the pools for query and whether a keyed entry matched.
// An entry matches when a query token is contained in its key or an alias,
// or contains one; entries are tried in file order. Without a direct match
// the entry whose key, aliases and item names best overlap the (stemmed)
// query is used. Otherwise the default pools are returned.
func (c *Catalog) Lookup(query string) (domain.RecommendationsData, bool) {
	if e, ok := c.match(query); ok {
		return fill(e.Pools), true
	}
	if res := c.index.TopK(Normalize(query), 1); len(res) > 0 {
		if i, ok := c.byKey[res[0].Key]; ok {
			return fill(c.entries[i].Pools), true
		}
	}
	return c.Default(), false
}

// Supplement is the basic search: a directly matching entry, else default
// items whose text contains a query token (at most SupplementLimit per
// category), else the default pools.
func (c *Catalog) Supplement(query string) domain.RecommendationsData {
	if e, ok := c.match(query); ok {
		return fill(e.Pools)
	}

	tokens := search.Tokenize(Normalize(query))
	out := domain.NewRecommendationsData()
	hit := false
	for _, cat := range domain.Categories() {
		for _, it := range c.def[cat] {
			if len(out[cat]) >= SupplementLimit {
				break
			}
			if containsAny(Normalize(it.SearchableText()), tokens) {
				out[cat] = append(out[cat], it.Clone())
				hit = true
			}
		}
	}
	if hit {
		return out
	}
	return c.Default()
}

// Related returns up to limit basic-search items for every category except
// current. Categories without items are omitted. limit <= 0 uses
// DefaultRelatedLimit.
func (c *Catalog) Related(query string, current domain.Category, limit int) domain.RecommendationsData {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	all := c.Supplement(query)
	out := make(domain.RecommendationsData, len(all))
	for cat, items := range all {
		if cat == current || len(items) == 0 {
			continue
		}
		out[cat] = items[:min(limit, len(items))]
	}
	return out
}

func (c *Catalog) match(query string) (*entry, bool) {
	tokens := search.Tokenize(Normalize(query))
	if len(tokens) == 0 {
		return nil, false
	}
	for i := range c.entries {
		e := &c.entries[i]
		for _, name := range e.names {
			for _, t := range tokens {
				if strings.Contains(name, t) || strings.Contains(t, name) {
					return e, true
				}
			}
		}
	}
	return nil, false
}

func containsAny(text string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// fill deep-copies pools and guarantees a non-nil list per known category.
func fill(pools domain.RecommendationsData) domain.RecommendationsData {
	out := domain.NewRecommendationsData()
	for cat, items := range pools {
		if items == nil {
			continue
		}
		out[cat] = domain.CloneItems(items)
	}
	return out
}
