// morpho-cli inspects a campaign directory's solution store from the command
// line: counts, schemas, stored solutions, and a full JSON export. It is a
// read-only companion to the plugin core; writes only ever come from the host.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/config"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/fitness"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/logging"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/store"
)

var (
	flagDirectory string
	flagProject   string
	flagConfig    string
	flagWhere     []string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "morpho-cli",
	Short: "Inspect a design exploration campaign's solution store",
	Long: `morpho-cli reads the SQLite store inside a campaign directory and
reports on the solutions collected there: how many exist, what schema the
project declared, and the solutions themselves, optionally narrowed by
fitness filters.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		logger, err := loaded.BuildLogger()
		if err != nil {
			return err
		}
		logging.SetLogger(logger)
		cfg = loaded
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored solutions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
			n, err := s.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		})
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the project's declared input schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
			descriptors, err := s.GetInputSchema(ctx)
			if err != nil {
				return err
			}
			for _, d := range descriptors {
				fmt.Printf("%s\t%s\n", d.Name, d.Type)
			}
			return nil
		})
	},
}

var solutionsCmd = &cobra.Command{
	Use:   "solutions",
	Short: "List stored solutions, optionally filtered",
	Long: `Lists solutions as one line per row. Filters are given as --where
"name,op,value" (for example --where "stress,<,120" or --where
"efficiency,top_n,10") and are joined with AND.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
			solutions, err := filteredSolutions(ctx, s)
			if err != nil {
				return err
			}
			for _, sol := range solutions {
				fmt.Printf("%d\t%s\tinputs=%v\toutputs=%v\n", sol.ScopedID, sol.ID, sol.Inputs, sol.Outputs)
			}
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump solutions as JSON to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
			solutions, err := filteredSolutions(ctx, s)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(solutions)
		})
	},
}

func withStore(ctx context.Context, fn func(context.Context, *store.Store) error) error {
	identity := morpho.Identity{Directory: flagDirectory, Project: flagProject}
	s, err := store.OpenWithTimeout(ctx, identity, cfg.Store.BusyTimeout.Std())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func filteredSolutions(ctx context.Context, s *store.Store) ([]morpho.Solution, error) {
	expr, err := parseFilters(flagWhere)
	if err != nil {
		return nil, err
	}

	kinds, err := s.ParamKinds(ctx)
	if err != nil {
		return nil, err
	}
	pred, err := expr.Eval(fitness.Context{Project: flagProject, Schema: kinds})
	if err != nil {
		return nil, err
	}
	return s.GetSolutions(ctx, pred)
}

// parseFilters turns "name,op,value" strings into an ANDed expression tree.
func parseFilters(specs []string) (fitness.Expression, error) {
	leaves := make([]fitness.Expression, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, ",", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("bad filter %q: want name,op,value", spec)
		}
		op, err := fitness.ParseOperator(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, err
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad filter value in %q: %w", spec, err)
		}
		leaves = append(leaves, fitness.Leaf{
			Param: strings.TrimSpace(parts[0]),
			Op:    op,
			Value: value,
		})
	}
	return fitness.FoldAnd(leaves...), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDirectory, "dir", "d", "", "campaign directory holding the store")
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", "", "project name inside the store")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML config file")

	solutionsCmd.Flags().StringArrayVar(&flagWhere, "where", nil, "filter as name,op,value (repeatable, ANDed)")
	exportCmd.Flags().StringArrayVar(&flagWhere, "where", nil, "filter as name,op,value (repeatable, ANDed)")

	rootCmd.AddCommand(countCmd, schemaCmd, solutionsCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
