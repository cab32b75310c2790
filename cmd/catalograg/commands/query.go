package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
	"github.com/kailas-cloud/catalograg/internal/domain/search/request"
	"github.com/kailas-cloud/catalograg/internal/metrics"
	"github.com/kailas-cloud/catalograg/internal/usecase/retrieval"
)

type queryFlags struct {
	scope              string
	matches            map[string]string
	poolSize           int
	limit              int
	displayCount       int
	includeUnavailable bool
	skipRerank         bool
	text               bool
	timeout            time.Duration
}

// newQueryCmd runs one retrieval and prints the result.
func newQueryCmd(a *app) *cobra.Command {
	f := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Run a single retrieval and print the result as JSON",
		Long: `Run the retrieval pipeline once against the configured vector store.

Examples:
  catalograg query --scope shop1 "red running shoes under 100"
  catalograg query --scope shop1 --match brand=acme --display 5 "wool coat"
  catalograg query --scope shop1 --text "summer dress"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(strings.Join(args, " "))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
			defer cancel()

			p, err := buildPipeline(ctx, a.cfg, metrics.New(), a.logger)
			if err != nil {
				return err
			}
			defer p.Close()

			res, err := p.retrieval.RetrieveContext(ctx, req)
			if err != nil {
				return fmt.Errorf("retrieve: %w", err)
			}
			return writeResult(cmd.OutOrStdout(), res, f.text)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.scope, "scope", "", "Catalog scope to search (required)")
	flags.StringToStringVar(&f.matches, "match", nil, "Hard exact-match filter, key=value (repeatable)")
	flags.IntVar(&f.poolSize, "pool-size", 0, "Candidate pool size (default from config)")
	flags.IntVar(&f.limit, "limit", 0, "Search result limit (default from config)")
	flags.IntVar(&f.displayCount, "display", 0, "Number of items to return (default from config)")
	flags.BoolVar(&f.includeUnavailable, "include-unavailable", false, "Keep out-of-stock items")
	flags.BoolVar(&f.skipRerank, "skip-rerank", false, "Disable the rerank stage for this query")
	flags.BoolVar(&f.text, "text", false, "Print the formatted content instead of JSON")
	flags.DurationVar(&f.timeout, "timeout", 30*time.Second, "Overall timeout including store readiness")
	_ = cmd.MarkFlagRequired("scope")

	return cmd
}

func (f *queryFlags) request(query string) (request.Request, error) {
	filters, err := filter.FromMatches(f.matches)
	if err != nil {
		return request.Request{}, fmt.Errorf("invalid --match: %w", err)
	}
	req, err := request.New(request.Params{
		Query:              query,
		Scope:              f.scope,
		Filters:            filters,
		PoolSize:           f.poolSize,
		Limit:              f.limit,
		DisplayCount:       f.displayCount,
		IncludeUnavailable: f.includeUnavailable,
		SkipRerank:         f.skipRerank,
	})
	if err != nil {
		return request.Request{}, fmt.Errorf("invalid query: %w", err)
	}
	return req, nil
}

func writeResult(w io.Writer, res retrieval.Result, text bool) error {
	if text {
		_, err := io.WriteString(w, res.Content)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
