package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"scholar-rag/internal/di"
	"scholar-rag/internal/domain"
	"scholar-rag/internal/infra"
	"scholar-rag/internal/infra/config"
	"scholar-rag/internal/infra/logger"
	"scholar-rag/internal/usecase"
	"scholar-rag/internal/usecase/retrieval"
)

func main() {
	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Operational CLI for the scholar-rag retrieval pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRetrieveCmd(), newAuditCmd(), newShowCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup wires the full component graph against the configured database and
// builds the lexical index once.
func setup(ctx context.Context) (*config.Config, *di.ApplicationComponents, func(), error) {
	cfg := config.Load()
	log := logger.New()
	slog.SetDefault(log)

	pool, err := infra.NewPostgresDB(ctx, infra.DSN(cfg.DB))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to db: %w", err)
	}

	components, err := di.NewApplicationComponents(cfg, pool, log)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	if err := components.Rebuilder.Rebuild(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("build lexical index: %w", err)
	}
	return cfg, components, pool.Close, nil
}

type retrievedRow struct {
	Position    int     `json:"position"`
	ID          string  `json:"id"`
	DocumentID  string  `json:"document_id"`
	Title       string  `json:"title,omitempty"`
	Section     string  `json:"section,omitempty"`
	DOI         string  `json:"doi,omitempty"`
	FusionScore float64 `json:"fusion_score"`
	RerankScore float64 `json:"rerank_score"`
}

func newRetrieveCmd() *cobra.Command {
	var topK int
	var tags []string
	var organism []string
	var yearFrom, yearTo int
	var showExpansion bool
	var denseOnly bool

	cmd := &cobra.Command{
		Use:   "retrieve [query]",
		Short: "Run one retrieval and print the ranked candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			cfg, components, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			filters := domain.FilterFacets{Tags: tags, Organism: organism}
			if yearFrom != 0 || yearTo != 0 {
				filters.Years = &domain.YearRange{From: yearFrom, To: yearTo}
			}

			if denseOnly {
				return runDenseOnly(ctx, cmd, cfg, components, args[0], filters, topK)
			}

			out, err := components.RetrieveUsecase.Execute(ctx, usecase.RetrieveInput{
				Query:   args[0],
				Filters: filters,
				TopK:    topK,
			})
			if err != nil {
				return err
			}

			if showExpansion {
				fmt.Fprintf(cmd.OutOrStdout(), "matched keys: %v\nexpansion terms: %v\n\n",
					out.Expansion.MatchedKeys, out.Expansion.Terms)
			}

			if err := printRows(cmd, out.Candidates); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nfused: %d, reranker: %s\n", out.FusedCount, out.RerankerUsed)
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "candidates to return (0 = configured default)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "facet tag filter (repeatable)")
	cmd.Flags().StringSliceVar(&organism, "organism", nil, "organism filter (repeatable)")
	cmd.Flags().IntVar(&yearFrom, "year-from", 0, "publication year lower bound")
	cmd.Flags().IntVar(&yearTo, "year-to", 0, "publication year upper bound")
	cmd.Flags().BoolVar(&showExpansion, "show-expansion", false, "print matched dictionary keys and expansion terms")
	cmd.Flags().BoolVar(&denseOnly, "dense-only", false, "skip the lexical branch, fusion and reranking")
	return cmd
}

// runDenseOnly exercises the dense-only path: embed, vector search with
// section-priority boost and DOI dedup, no fusion or reranking.
func runDenseOnly(ctx context.Context, cmd *cobra.Command, cfg *config.Config, components *di.ApplicationComponents, query string, filters domain.FilterFacets, topK int) error {
	if topK <= 0 {
		topK = cfg.Retrieval.TopSynthesis
	}
	vectors, err := components.Encoder.Encode(ctx, []string{query})
	if err != nil {
		return fmt.Errorf("encode query: %w", err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("encoder returned %d vectors for one input", len(vectors))
	}

	retriever := retrieval.NewSingleBranchRetriever(components.Repo, cfg.Retrieval.MinSimilarity, slog.Default())
	candidates, err := retriever.Retrieve(ctx, vectors[0], filters, topK)
	if err != nil {
		return err
	}
	return printRows(cmd, candidates)
}

func printRows(cmd *cobra.Command, candidates domain.RankedList) error {
	rows := make([]retrievedRow, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, retrievedRow{
			Position:    c.RerankPosition,
			ID:          c.ID,
			DocumentID:  c.DocumentID,
			Title:       c.Title,
			Section:     c.Section,
			DOI:         c.DOI,
			FusionScore: c.FusionScore,
			RerankScore: c.RerankScore,
		})
	}
	encoded, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [passage-id...]",
		Short: "Print stored passages by ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			_, components, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			candidates, err := components.Repo.GetByIDs(ctx, args)
			if err != nil {
				return err
			}
			for _, c := range candidates {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%d)  [%s]\nDOI: %s\n%s\n\n",
					c.ID, c.Title, c.Year, c.Section, c.DOI, c.Text)
			}
			if len(candidates) < len(args) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d IDs found\n", len(candidates), len(args))
			}
			return nil
		},
	}
}

// auditCase is one entry of the recall-audit fixture file.
type auditCase struct {
	Query               string   `json:"query"`
	ExpectedDocumentIDs []string `json:"expected_document_ids"`
}

func newAuditCmd() *cobra.Command {
	var casesPath string
	var k int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Measure recall@k against a fixed query/expected-documents set",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			data, err := os.ReadFile(casesPath)
			if err != nil {
				return fmt.Errorf("read cases file: %w", err)
			}
			var cases []auditCase
			if err := json.Unmarshal(data, &cases); err != nil {
				return fmt.Errorf("parse cases file: %w", err)
			}
			if len(cases) == 0 {
				return fmt.Errorf("cases file %q is empty", casesPath)
			}

			_, components, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			// One repeatable-read snapshot so every case sees the same corpus.
			var totalRecall float64
			err = components.SnapshotRunner.RunInSnapshot(ctx, func(ctx context.Context) error {
				for _, c := range cases {
					out, err := components.RetrieveUsecase.Execute(ctx, usecase.RetrieveInput{
						Query: c.Query,
						TopK:  k,
					})
					if err != nil {
						return fmt.Errorf("case %q: %w", c.Query, err)
					}

					recall := recallAtK(out.Candidates, c.ExpectedDocumentIDs)
					totalRecall += recall
					fmt.Fprintf(cmd.OutOrStdout(), "recall@%d %.3f  %s\n", k, recall, c.Query)
				}
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nmean recall@%d over %d cases: %.3f\n",
				k, len(cases), totalRecall/float64(len(cases)))
			return nil
		},
	}

	cmd.Flags().StringVar(&casesPath, "cases", "", "path to JSON file of {query, expected_document_ids} cases")
	cmd.Flags().IntVar(&k, "k", 6, "cut-off for recall computation")
	cmd.MarkFlagRequired("cases")
	return cmd
}

func recallAtK(candidates domain.RankedList, expected []string) float64 {
	if len(expected) == 0 {
		return 0
	}
	retrieved := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		retrieved[c.DocumentID] = true
	}
	hits := 0
	for _, id := range expected {
		if retrieved[id] {
			hits++
		}
	}
	return float64(hits) / float64(len(expected))
}
