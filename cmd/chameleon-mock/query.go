package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/spf13/cobra"
)

var (
	queryFilters   []string
	queryColumns   []string
	queryCount     bool
	queryAggregate string
	queryLimit     uint64
	queryLive      bool
	queryFormat    string
	queryDebug     bool
	queryTrace     bool
	queryExplain   bool
)

var queryCmd = &cobra.Command{
	Use:   "query <entity>",
	Short: "Run a single select against the fixtures",
	Long: `Execute one select query and print the rows. Answers come from the
fixtures unless --live is given, in which case the configured database
is queried.

Filters use field:op:value, e.g. Name:eq:Alice, Age:gte:18 or
Status:in:new,paid.

Examples:
  chameleon-mock query Contact --filter Name:eq:Alice
  chameleon-mock query Order --count --filter Status:eq:new --trace
  chameleon-mock query Order --aggregate sum:Total --live --debug`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		p, err := loadProject()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		rows, err := runQuery(ctx, p, args[0])
		details := map[string]interface{}{"entity": args[0], "live": queryLive}
		if err == nil {
			details["rows"] = len(rows)
		}
		p.record("query", started, details, err)
		return err
	},
}

func runQuery(ctx context.Context, p *project, entity string) ([]engine.Row, error) {
	eng, err := p.engine()
	if err != nil {
		return nil, err
	}

	switch {
	case queryExplain:
		eng.WithDebug(engine.DebugExplain)
	case queryTrace:
		eng.WithDebug(engine.DebugTrace)
	case queryDebug:
		eng.WithDebug(engine.DebugSQL)
	}

	if queryLive {
		if err := p.connect(ctx, eng); err != nil {
			return nil, err
		}
		defer eng.Close()
	} else {
		provider, err := p.provider()
		if err != nil {
			return nil, err
		}
		eng.UseProvider(provider)
	}

	qb, err := buildQuery(eng, entity)
	if err != nil {
		return nil, err
	}

	result, err := qb.Execute(ctx)
	if errors.Is(err, engine.ErrNoResponse) {
		printWarning("No mock matches this query")
		return nil, nil
	}
	if err != nil {
		fmt.Print(engine.FormatError(err))
		return nil, fmt.Errorf("query on %s failed", entity)
	}

	if queryFormat == "json" {
		out, err := json.MarshalIndent(result.Rows, "", "  ")
		if err != nil {
			return nil, err
		}
		fmt.Println(string(out))
	} else {
		printRowsTable(result.Rows)
		printSuccess("Retrieved %d row(s)", len(result.Rows))
	}
	return result.Rows, nil
}

func buildQuery(eng *engine.Engine, entity string) (*engine.QueryBuilder, error) {
	qb := eng.Query(entity).Select(queryColumns...)

	switch {
	case queryCount && queryAggregate != "":
		return nil, fmt.Errorf("--count and --aggregate are mutually exclusive")
	case queryCount:
		qb.Count("")
	case queryAggregate != "":
		fn, field, _ := strings.Cut(queryAggregate, ":")
		agg, err := engine.ParseAggregationType(fn)
		if err != nil {
			return nil, err
		}
		if agg == engine.AggregationNone {
			return nil, fmt.Errorf("invalid --aggregate %q, expected fn:field", queryAggregate)
		}
		qb.Aggregate(agg, field, "")
	}

	for _, f := range queryFilters {
		parts := strings.SplitN(f, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid --filter %q, expected field:op:value", f)
		}
		qb.Filter(parts[0], parts[1], parseLiteral(parts[1], parts[2]))
	}

	if queryLimit > 0 {
		qb.Limit(queryLimit)
	}
	return qb, nil
}

// parseLiteral reads a command-line value as null, bool, number or string.
// The in operator takes a comma-separated list.
func parseLiteral(op, s string) interface{} {
	if strings.EqualFold(op, "in") {
		items := strings.Split(s, ",")
		list := make([]interface{}, len(items))
		for i, item := range items {
			list[i] = parseLiteral("", strings.TrimSpace(item))
		}
		return list
	}

	if s == "null" {
		return nil
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func printRowsTable(rows []engine.Row) {
	if len(rows) == 0 {
		return
	}

	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}
	sort.Strings(columns)

	widths := make([]int, len(columns))
	cells := make([][]string, len(rows))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for i, col := range columns {
			v, ok := row[col]
			cell := ""
			if ok {
				cell = truncate(fmt.Sprintf("%v", v), 40)
			}
			cells[r][i] = cell
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	fmt.Println()
	for i, col := range columns {
		infoColor.Fprintf(os.Stdout, "%-*s  ", widths[i], col)
	}
	fmt.Println()
	for i := range columns {
		fmt.Print(strings.Repeat("─", widths[i]) + "  ")
	}
	fmt.Println()
	for _, line := range cells {
		for i, cell := range line {
			fmt.Printf("%-*s  ", widths[i], cell)
		}
		fmt.Println()
	}
	fmt.Println()
}

func init() {
	queryCmd.Flags().StringArrayVarP(&queryFilters, "filter", "f", nil, "filter as field:op:value (repeatable)")
	queryCmd.Flags().StringSliceVar(&queryColumns, "select", nil, "columns to project")
	queryCmd.Flags().BoolVar(&queryCount, "count", false, "count matching rows")
	queryCmd.Flags().StringVar(&queryAggregate, "aggregate", "", "aggregate as fn:field (sum, avg, min, max, count)")
	queryCmd.Flags().Uint64Var(&queryLimit, "limit", 0, "maximum number of rows")
	queryCmd.Flags().BoolVar(&queryLive, "live", false, "query the configured database instead of fixtures")
	queryCmd.Flags().StringVar(&queryFormat, "format", "table", "output format (table|json)")
	queryCmd.Flags().BoolVar(&queryDebug, "debug", false, "show generated SQL")
	queryCmd.Flags().BoolVar(&queryTrace, "trace", false, "show full query trace")
	queryCmd.Flags().BoolVar(&queryExplain, "explain", false, "show query plan")

	rootCmd.AddCommand(queryCmd)
}
