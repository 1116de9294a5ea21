package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-discovery-backend/internal/catalog"
	"github.com/tbourn/go-discovery-backend/internal/diversity"
	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/pipeline"
	"github.com/tbourn/go-discovery-backend/internal/sysutil"
)

// app holds flag values and the loaded catalog for one invocation.
type app struct {
	catalogPath string
	seed        uint64
	dup         float64
	cross       float64
	transitive  bool
	recent      []string
	limit       int
	verbose     bool

	cat *catalog.Catalog
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "discoverctl",
		Short:         "Run the discovery engine against a catalog file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			level := "warn"
			if a.verbose || sysutil.IsTruthy(os.Getenv("DISCOVERCTL_VERBOSE")) {
				level = "debug"
			}
			sysutil.SetupLogger(level, true, cmd.ErrOrStderr())

			path := sysutil.FirstNonEmpty(a.catalogPath, os.Getenv("CATALOG_PATH"), "data/catalog.yaml")
			cat, err := catalog.Load(path)
			if err != nil {
				return err
			}
			a.cat = cat
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.catalogPath, "catalog", "c", "", "catalog YAML file (default $CATALOG_PATH or data/catalog.yaml)")
	pf.Uint64Var(&a.seed, "seed", 0, "RNG seed for expansion and shuffles (0 = random)")
	pf.Float64Var(&a.dup, "dup-threshold", diversity.DefaultThreshold, "within-category duplicate threshold")
	pf.Float64Var(&a.cross, "cross-threshold", diversity.DefaultCrossThreshold, "cross-category duplicate threshold")
	pf.BoolVar(&a.transitive, "transitive", false, "group duplicates by connected components")
	pf.StringSliceVar(&a.recent, "recent", nil, "recent searches used for personalization")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(a.searchCmd(), a.categoryCmd(), a.suggestCmd(), a.catalogCmd())
	return root
}

func (a *app) pipeline() *pipeline.Pipeline {
	opts := pipeline.DefaultOptions()
	opts.Seed = a.seed
	opts.DupThreshold = a.dup
	opts.CrossThreshold = a.cross
	opts.Transitive = a.transitive
	return pipeline.New(opts)
}

func (a *app) request(query string) (pipeline.Request, bool) {
	pools, matched := a.cat.Lookup(query)
	return pipeline.Request{
		Query: query,
		Pools: pools,
		User:  domain.UserContext{RecentSearches: a.recent},
	}, matched
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Diversified results for every category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			req, matched := a.request(query)
			res, err := a.pipeline().Run(cmdContext(cmd), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"query":   query,
				"matched": matched,
				"data":    res.Data,
				"stats":   statsJSON(res.Stats),
			})
		},
	}
}

func (a *app) categoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "category <category> <query>",
		Short: "Detail list for one category",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, ok := domain.ParseCategory(args[0])
			if !ok {
				return fmt.Errorf("unknown category %q", args[0])
			}
			query := strings.Join(args[1:], " ")
			req, _ := a.request(query)
			extra := a.cat.Supplement(query)[cat]
			items, st, err := a.pipeline().RunCategory(cmdContext(cmd), cat, req, extra)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"query":    query,
				"category": cat,
				"items":    items,
				"related":  a.cat.Related(query, cat, catalog.DefaultRelatedLimit),
				"stats":    statsJSON(st),
			})
		},
	}
}

func (a *app) suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest [prefix]",
		Short: "Typeahead suggestions",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.cat.Suggest(strings.Join(args, " "), a.recent, a.limit)
			if out == nil {
				out = []string{}
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"suggestions": out})
		},
	}
	cmd.Flags().IntVarP(&a.limit, "limit", "n", 0, "max suggestions (0 = default)")
	return cmd
}

func (a *app) catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Show catalog keys and default pool sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def := a.cat.Default()
			sizes := make(map[domain.Category]int, len(def))
			for _, c := range def.Keys() {
				sizes[c] = len(def[c])
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"entries":  a.cat.Len(),
				"keys":     a.cat.Keys(),
				"defaults": sizes,
				"popular":  a.cat.Popular(""),
			})
		},
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func statsJSON(st pipeline.Stats) map[string]any {
	return map[string]any{
		"generated":     st.Generated,
		"dropped":       st.Dropped,
		"cross_removed": st.CrossRemoved,
		"duration":      st.Duration.Round(time.Microsecond).String(),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
