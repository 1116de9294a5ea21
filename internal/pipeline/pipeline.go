// Package pipeline runs the discovery engine for one request: expand each
// category pool, rank it against the query, diversify it, remove items that
// appear in more than one category, then reorder by the user's context.
//
// The stage functions it calls are pure. Pipeline only adds the per-category
// fan-out, cancellation checks between stages and per-stage counters.
package pipeline

import (
	"context"
	"hash/fnv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-discovery-backend/internal/diversity"
	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/expand"
	"github.com/tbourn/go-discovery-backend/internal/observability"
	"github.com/tbourn/go-discovery-backend/internal/ranking"
	"github.com/tbourn/go-discovery-backend/internal/search"
	"github.com/tbourn/go-discovery-backend/internal/similarity"
)

// Defaults applied by New to zero-valued Options fields.
const (
	DefaultCategoryCap    = diversity.DefaultMaxItems
	DefaultDetailCap      = 50
	DefaultDetailMinItems = 20
)

// Options tunes a Pipeline.
type Options struct {
	DupThreshold   float64 // within-category duplicate threshold
	CrossThreshold float64 // cross-category duplicate threshold
	CategoryCap    int     // items kept per category by Run
	DetailCap      int     // items kept by RunCategory
	DetailMinItems int     // RunCategory tops up from extra below this size
	ExpandTarget   int     // pool size expansion aims for
	MaxBoost       float64 // personalization boost ceiling

	Transitive     bool // group duplicates by connected components
	VectorFallback bool // vector sort when there is no search history
	ContextAware   bool // blend favorites and history into the final order

	// Seed pins synthetic item generation. Zero draws from entropy.
	Seed uint64

	// Embedder backs the vector stages; nil uses the built-in table.
	Embedder similarity.Embedder
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		DupThreshold:   diversity.DefaultThreshold,
		CrossThreshold: diversity.DefaultCrossThreshold,
		CategoryCap:    DefaultCategoryCap,
		DetailCap:      DefaultDetailCap,
		DetailMinItems: DefaultDetailMinItems,
		ExpandTarget:   expand.DefaultTarget,
		MaxBoost:       ranking.DefaultMaxBoost,
		ContextAware:   true,
	}
}

// Request is the input of one run.
type Request struct {
	Query string
	Pools domain.RecommendationsData
	User  domain.UserContext
}

// Stats counts what each stage did.
type Stats struct {
	Generated    int           // synthetic items added by expansion
	Dropped      int           // items cut by per-category diversification
	CrossRemoved int           // items removed as cross-category duplicates
	Duration     time.Duration // wall time of the run
}

// Result is the output of one run.
type Result struct {
	Data  domain.RecommendationsData
	Stats Stats
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	opts    Options
	entropy *expand.Generator
}

// New returns a Pipeline. Zero or negative numeric fields take the defaults
// from DefaultOptions.
func New(opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.DupThreshold <= 0 {
		opts.DupThreshold = def.DupThreshold
	}
	if opts.CrossThreshold <= 0 {
		opts.CrossThreshold = def.CrossThreshold
	}
	if opts.CategoryCap <= 0 {
		opts.CategoryCap = def.CategoryCap
	}
	if opts.DetailCap <= 0 {
		opts.DetailCap = def.DetailCap
	}
	if opts.DetailMinItems <= 0 {
		opts.DetailMinItems = def.DetailMinItems
	}
	if opts.ExpandTarget <= 0 {
		opts.ExpandTarget = def.ExpandTarget
	}
	if opts.MaxBoost <= 0 {
		opts.MaxBoost = def.MaxBoost
	}
	if opts.Embedder == nil {
		opts.Embedder = similarity.DefaultEmbedder
	}
	return &Pipeline{opts: opts, entropy: expand.NewEntropyGenerator()}
}

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }

// Run executes the full pipeline. Categories are processed concurrently up
// to cross-category dedupe; an error is returned only when ctx ends.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline", "Run",
		attribute.String("query", req.Query),
		attribute.Int("history.len", len(req.User.RecentSearches)),
		attribute.Int("favorites.len", len(req.User.Favorites)),
	)
	defer span.End()

	start := time.Now()
	var st Stats

	data, err := p.perCategory(ctx, req, &st)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	data = diversity.RemoveCrossCategoryDuplicates(data, p.opts.CrossThreshold,
		diversity.WithObserver(func(diversity.Removal) { st.CrossRemoved++ }),
	)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	data = p.reorder(data, req)

	st.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("items.generated", st.Generated),
		attribute.Int("items.dropped", st.Dropped),
		attribute.Int("items.cross_removed", st.CrossRemoved),
	)
	return Result{Data: data, Stats: st}, nil
}

// RunCategory builds the detail list for one category. It runs the full
// pipeline, tops the category up from extra (skipping names already present)
// while it holds fewer than DetailMinItems, diversifies to DetailCap and
// personalizes the result.
func (p *Pipeline) RunCategory(ctx context.Context, category domain.Category, req Request, extra []domain.RecommendationItem) ([]domain.RecommendationItem, Stats, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline", "RunCategory",
		attribute.String("category", string(category)),
		attribute.String("query", req.Query),
	)
	defer span.End()

	res, err := p.Run(ctx, req)
	if err != nil {
		return nil, Stats{}, err
	}
	start := time.Now()
	st := res.Stats

	items := res.Data[category]
	if len(items) < p.opts.DetailMinItems {
		seen := make(map[string]struct{}, len(items))
		for _, it := range items {
			seen[it.Name] = struct{}{}
		}
		for _, it := range extra {
			if _, dup := seen[it.Name]; dup {
				continue
			}
			seen[it.Name] = struct{}{}
			items = append(items, it.Clone())
		}
	}

	before := len(items)
	items = diversity.Diversify(items, p.opts.DetailCap, p.opts.DupThreshold, p.groupOptions()...)
	st.Dropped += before - len(items)

	if len(req.User.RecentSearches) > 0 {
		items = ranking.Personalize(items, req.User.RecentSearches, p.opts.MaxBoost)
	}
	if items == nil {
		items = []domain.RecommendationItem{}
	}
	st.Duration += time.Since(start)
	return items, st, nil
}

func (p *Pipeline) perCategory(ctx context.Context, req Request, st *Stats) (domain.RecommendationsData, error) {
	cats := categoriesOf(req.Pools)
	tokens := search.Tokenize(req.Query)

	lists := make([][]domain.RecommendationItem, len(cats))
	generated := make([]int, len(cats))
	dropped := make([]int, len(cats))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cats {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pool := req.Pools[c]
			expanded := p.generator(req.Query, c).Expand(pool, req.Query, c, p.opts.ExpandTarget)
			generated[i] = len(expanded) - len(pool)

			ranked := ranking.RankByRelevance(expanded, tokens)
			lists[i] = diversity.Diversify(ranked, p.opts.CategoryCap, p.opts.DupThreshold, p.groupOptions()...)
			dropped[i] = len(ranked) - len(lists[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := make(domain.RecommendationsData, len(cats))
	for i, c := range cats {
		if lists[i] == nil {
			lists[i] = []domain.RecommendationItem{}
		}
		data[c] = lists[i]
		st.Generated += generated[i]
		st.Dropped += dropped[i]
	}
	return data, nil
}

func (p *Pipeline) reorder(data domain.RecommendationsData, req Request) domain.RecommendationsData {
	user := req.User
	for c, items := range data {
		switch {
		case len(user.RecentSearches) > 0:
			items = ranking.Personalize(items, user.RecentSearches, p.opts.MaxBoost)
		case p.opts.VectorFallback:
			items = ranking.SortByVectorRelevance(items, req.Query, p.opts.Embedder)
		}
		if p.opts.ContextAware && len(user.Favorites) > 0 {
			items = ranking.ContextAwareRank(items, req.Query, user, p.opts.Embedder)
		}
		data[c] = items
	}
	return data
}

func (p *Pipeline) groupOptions() []diversity.Option {
	if p.opts.Transitive {
		return []diversity.Option{diversity.WithTransitive()}
	}
	return nil
}

// generator returns the item source for one category of one request. With a
// seed every (normalized query, category) pair gets its own deterministic
// stream, so results do not depend on goroutine scheduling and queries that
// share a cache key share a stream.
func (p *Pipeline) generator(query string, c domain.Category) *expand.Generator {
	if p.opts.Seed == 0 {
		return p.entropy
	}
	h := fnv.New64a()
	h.Write([]byte(search.Normalize(query)))
	h.Write([]byte{0})
	h.Write([]byte(c))
	return expand.NewSeededGenerator(p.opts.Seed ^ h.Sum64())
}

// categoriesOf returns every known category plus any extra keys of pools.
func categoriesOf(pools domain.RecommendationsData) []domain.Category {
	out := domain.Categories()
	known := make(map[domain.Category]struct{}, len(out))
	for _, c := range out {
		known[c] = struct{}{}
	}
	for _, c := range pools.Keys() {
		if _, ok := known[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}
