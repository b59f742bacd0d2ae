package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/opsgraph/opsgraph/internal/embedding"
	"github.com/opsgraph/opsgraph/internal/metrics"
)

func newSearchCmd() *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Semantic search over incidents",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if k <= 0 {
				k = 10
			}

			metrics.RegisterEmbeddingMetrics()
			embedder := embedding.NewEmbedder(&embedding.Config{
				APIKey:     cfg.Embedding.APIKey,
				BaseURL:    cfg.Embedding.BaseURL,
				Model:      cfg.Embedding.Model,
				Dimensions: cfg.Embedding.Dimensions,
				Logger:     cliLogger(),
			})

			ctx := context.Background()
			vector, err := embedder.Embed(ctx, args[0], "")
			if err != nil {
				fatal("embed query", err)
			}

			hits, err := manager.SearchSemantic(ctx, vector, k)
			if err != nil {
				fatal("semantic search", err)
			}
			output(hits)
		},
	}
	cmd.Flags().IntVarP(&k, "top", "k", 10, "Number of results")
	return cmd
}
