package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sysmanager-dev/sysmanager/pkg/sysmanager"
)

type searchOptions struct {
	docType string
	where   []string
	sort    string
	page    int
	limit   int
}

// NewSearchCmd creates the search command
func NewSearchCmd(global *GlobalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search documents",
		Long: `Search documents with advanced criteria.

Each --where takes field:type:op:value. Currency values carry their code
after the amount.

Examples:
  $ smctl search --type invoice --where 'status:string:eq:paid'
  $ smctl search --where 'dueAt:date:before:2025-01-31'
  $ smctl search --where 'total:currency:gte:100 EUR' --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(global)
			if err != nil {
				return err
			}
			return runSearch(cmd.Context(), cmd.OutOrStdout(), w, opts)
		},
	}

	cmd.Flags().StringVar(&opts.docType, "type", "", "Document type")
	cmd.Flags().StringArrayVar(&opts.where, "where", nil, "Criterion field:type:op:value (repeatable)")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "Sort field, prefix with - for descending")
	cmd.Flags().IntVar(&opts.page, "page", 0, "Page number")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Page size (max 500)")

	return cmd
}

// parseCriterion reads field:type:op:value. The value keeps any further
// colons so timestamps survive.
func parseCriterion(s string) (sysmanager.Criterion, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 4 {
		return sysmanager.Criterion{}, fmt.Errorf("invalid criterion '%s': expected field:type:op:value", s)
	}

	c := sysmanager.Criterion{
		Field:    parts[0],
		Type:     sysmanager.FieldType(parts[1]),
		Operator: sysmanager.Operator(parts[2]),
		Value:    parts[3],
	}

	if c.Type == sysmanager.TypeCurrency {
		amount, currency, ok := strings.Cut(strings.TrimSpace(parts[3]), " ")
		if !ok {
			return sysmanager.Criterion{}, fmt.Errorf("invalid criterion '%s': currency values need a code, e.g. '100 EUR'", s)
		}
		c.Value = amount
		c.Currency = strings.TrimSpace(currency)
	}

	return c, nil
}

func runSearch(ctx context.Context, out io.Writer, w *workspace, opts searchOptions) error {
	current, err := w.session()
	if err != nil {
		return err
	}

	search := sysmanager.DocumentSearch{
		Type: opts.docType,
		Sort: opts.sort,
		Page: sysmanager.Page{Page: opts.page, Limit: opts.limit},
	}
	for _, raw := range opts.where {
		c, err := parseCriterion(raw)
		if err != nil {
			return err
		}
		search.Criteria = append(search.Criteria, c)
	}

	result, err := w.api.Documents.Search(ctx, current.Token, search)
	if err != nil {
		return err
	}

	if len(result.Items) == 0 {
		fmt.Fprintln(out, "No documents found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tUPDATED AT")
	fmt.Fprintln(tw, "──\t────\t─────\t──────────")
	for _, doc := range result.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", doc.ID, doc.Type, doc.Title, formatTime(doc.UpdatedAt))
	}
	tw.Flush()

	fmt.Fprintf(out, "\n%d of %d documents\n", len(result.Items), result.Total)
	return nil
}
