package cli

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duynguyendang/relpat/pkg/analysis"
	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/service"
)

// addOutputFlags registers --format and --output.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "tsv", "Output format: tsv or json")
	cmd.Flags().StringP("output", "o", "", "Write the result to a file instead of stdout")
}

// writeResult writes v as JSON, or through writeTSV, to the configured output.
func writeResult(cmd *cobra.Command, v any, writeTSV func(io.Writer) error) (err error) {
	format, _ := cmd.Flags().GetString("format")
	path, _ := cmd.Flags().GetString("output")

	out := cmd.OutOrStdout()
	if path != "" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		out = f
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "tsv":
		return writeTSV(out)
	}
	return errors.Invalidf("unknown format %q (want tsv or json)", format)
}

// withService runs fn against a read-only service for the dataset named by arg.
func (a *app) withService(arg string, opts serviceOptions, fn func(svc *service.AnalysisService, id string) error) error {
	baseDir, id := a.resolveDataset(arg)
	opts.baseDir = baseDir
	opts.readOnly = true
	svc, cleanup, err := a.newService(opts)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(svc, id)
}

func newClassifyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <dataset>",
		Short: "Categorize relations by logical pattern",
		Long: `Categorize the relations of a dataset by the logical patterns they satisfy:
symmetry, anti-symmetry, inversion and composition.

The unpruned table is cached under a hash of the selected triples; the
support and confidence thresholds are applied afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := analysis.DefaultClassifyOptions()
			opts.MinSupport, _ = cmd.Flags().GetInt("min-support")
			opts.MinConfidence, _ = cmd.Flags().GetFloat64("min-confidence")
			opts.DropConfidence, _ = cmd.Flags().GetBool("drop-confidence")
			opts.Force, _ = cmd.Flags().GetBool("force")
			opts.AddLabels, _ = cmd.Flags().GetBool("labels")
			parts, _ := cmd.Flags().GetString("parts")
			opts.Parts = splitParts(parts)
			if err := opts.Validate(); err != nil {
				return err
			}

			var sopts serviceOptions
			if show, _ := cmd.Flags().GetBool("progress"); show {
				sopts.progress = newBarProgress("Checking ternary patterns ", cmd.ErrOrStderr())
			}
			return a.withService(args[0], sopts, func(svc *service.AnalysisService, id string) error {
				table, err := svc.ClassifyRelations(cmd.Context(), id, opts)
				if err != nil {
					return err
				}
				a.logger.Info("classified relations", "dataset", table.Dataset, "rows", table.Len(), "cached", table.Cached, "key", table.CacheKey)
				return writeResult(cmd, table, table.WriteTSV)
			})
		},
	}
	d := analysis.DefaultClassifyOptions()
	cmd.Flags().Int("min-support", d.MinSupport, "Minimum support (inclusive)")
	cmd.Flags().Float64("min-confidence", d.MinConfidence, "Minimum confidence in [0, 1] (inclusive)")
	cmd.Flags().Bool("drop-confidence", d.DropConfidence, "Collapse to distinct (relation, pattern) pairs")
	cmd.Flags().Bool("force", false, "Recompute even if a cached result exists")
	cmd.Flags().Bool("labels", false, "Add a relation label column")
	cmd.Flags().String("parts", "", "Comma-separated dataset parts (default: all)")
	cmd.Flags().Bool("progress", true, "Show a progress bar for composition evaluation")
	addOutputFlags(cmd)
	return cmd
}

func newCardinalityCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cardinality <dataset>",
		Short: "Classify relations as 1-1, 1-N, N-1 or N-N",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts, _ := cmd.Flags().GetString("parts")
			labels, _ := cmd.Flags().GetBool("labels")
			return a.withService(args[0], serviceOptions{}, func(svc *service.AnalysisService, id string) error {
				rows, err := svc.CardinalityTypes(cmd.Context(), id, splitParts(parts), labels)
				if err != nil {
					return err
				}
				return writeResult(cmd, rows, func(w io.Writer) error { return analysis.WriteCardinalityTSV(w, rows) })
			})
		},
	}
	cmd.Flags().String("parts", "", "Comma-separated dataset parts (default: all)")
	cmd.Flags().Bool("labels", true, "Add relation labels")
	addOutputFlags(cmd)
	return cmd
}

func newFunctionalityCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "functionality <dataset>",
		Short: "Compute functionality and inverse functionality per relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts, _ := cmd.Flags().GetString("parts")
			labels, _ := cmd.Flags().GetBool("labels")
			return a.withService(args[0], serviceOptions{}, func(svc *service.AnalysisService, id string) error {
				rows, err := svc.Functionality(cmd.Context(), id, splitParts(parts), labels)
				if err != nil {
					return err
				}
				return writeResult(cmd, rows, func(w io.Writer) error { return analysis.WriteFunctionalityTSV(w, rows) })
			})
		},
	}
	cmd.Flags().String("parts", "", "Comma-separated dataset parts (default: all)")
	cmd.Flags().Bool("labels", true, "Add relation labels")
	addOutputFlags(cmd)
	return cmd
}

func newCountsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counts <dataset>",
		Short: "Per-part statistics of relations and entities",
		Long: `Per-part statistics:
  relations     triples per relation
  entities      head and tail occurrences per entity
  cooccurrence  head and tail occurrences per (entity, relation)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			by, _ := cmd.Flags().GetString("by")
			return a.withService(args[0], serviceOptions{}, func(svc *service.AnalysisService, id string) error {
				ctx := cmd.Context()
				switch by {
				case "relations":
					rows, parts, err := svc.RelationCounts(ctx, id)
					if err != nil {
						return err
					}
					return writeResult(cmd, map[string]any{"parts": parts, "rows": rows},
						func(w io.Writer) error { return analysis.WriteRelationCountsTSV(w, parts, rows) })
				case "entities":
					rows, parts, err := svc.EntityCounts(ctx, id)
					if err != nil {
						return err
					}
					return writeResult(cmd, map[string]any{"parts": parts, "rows": rows},
						func(w io.Writer) error { return analysis.WriteEntityCountsTSV(w, parts, rows) })
				case "cooccurrence":
					rows, relations, err := svc.CoOccurrence(ctx, id)
					if err != nil {
						return err
					}
					return writeResult(cmd, map[string]any{"relations": relations, "rows": rows},
						func(w io.Writer) error { return analysis.WriteCoOccurrenceTSV(w, relations, rows) })
				}
				return errors.Invalidf("unknown --by %q (want relations, entities or cooccurrence)", by)
			})
		},
	}
	cmd.Flags().String("by", "relations", "relations, entities or cooccurrence")
	addOutputFlags(cmd)
	return cmd
}
