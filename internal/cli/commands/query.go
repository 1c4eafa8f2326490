package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/graphorm/internal/cli/ui"
	"github.com/conduit-lang/graphorm/internal/orm/crud"
	"github.com/conduit-lang/graphorm/internal/orm/query"
	"github.com/conduit-lang/graphorm/internal/orm/record"
	"github.com/conduit-lang/graphorm/internal/orm/schema"
)

// fetchFlags are the fetch options shared by query and count
type fetchFlags struct {
	with     []string
	filters  []string
	orders   []string
	skip     int
	limit    int
	required bool
	dryRun   bool
}

func (f *fetchFlags) register(cmd *cobra.Command, paging bool) {
	flags := cmd.Flags()
	flags.StringSliceVarP(&f.with, "with", "w", nil, "relationships to load, as a__b paths; suffix ? or ! marks a segment optional or required")
	flags.StringArrayVarP(&f.filters, "filter", "f", nil, "filter such as name=Ann, age>=21 or friends.name=Bob")
	flags.BoolVar(&f.required, "required", false, "match unflagged relationships as required instead of optional")
	flags.BoolVar(&f.dryRun, "dry-run", false, "print the statement without running it")
	if paging {
		flags.StringArrayVarP(&f.orders, "order", "o", nil, "order term such as name or friends.name:desc")
		flags.IntVar(&f.skip, "skip", -1, "rows to skip")
		flags.IntVar(&f.limit, "limit", -1, "maximum rows to return")
	}
}

func (f *fetchFlags) config() (crud.Config, error) {
	cfg := crud.Config{
		With:     f.with,
		Optional: crud.Bool(!f.required),
	}

	for _, expr := range f.filters {
		p, err := query.ParseFilter(expr)
		if err != nil {
			return crud.Config{}, err
		}
		cfg.Filters = append(cfg.Filters, p)
	}
	for _, expr := range f.orders {
		cfg.OrderBy = append(cfg.OrderBy, query.ParseOrder(expr))
	}
	if f.skip >= 0 {
		cfg.Skip = crud.Int(f.skip)
	}
	if f.limit >= 0 {
		cfg.Limit = crud.Int(f.limit)
	}
	return cfg, nil
}

func newQueryCommand(opts *options) *cobra.Command {
	var (
		fetch  fetchFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "query <Entity>",
		Short: "Fetch records of an entity with their relationships",
		Long: `Fetch records of an entity, loading the relationships named by --with.

Examples:
  graphorm query User --with role__name --filter "name=Ann"
  graphorm query User --with friends --order friends.name:desc --limit 10
  graphorm query User --with "role!" --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "table" && output != "json" {
				return fmt.Errorf("unknown output format %q, expected table or json", output)
			}

			e, err := opts.load()
			if err != nil {
				return err
			}
			entity, err := e.entity(cmd.ErrOrStderr(), args[0])
			if err != nil {
				return err
			}
			cfg, err := fetch.config()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			runner, release, err := e.runner(ctx, fetch.dryRun)
			if err != nil {
				return err
			}
			defer release()

			ops := crud.NewOperations(entity, runner, crud.WithLogger(e.log))
			found := ops.FindAll(ctx, cfg)
			records, err := found.Await(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if fetch.dryRun {
				return printStatement(out, found.Statement())
			}
			if output == "json" {
				return writeJSON(out, records.ToMaps())
			}
			renderRecords(out, entity, records, opts.noColor)
			return nil
		},
	}

	fetch.register(cmd, true)
	cmd.Flags().StringVar(&output, "output", "table", "output format: table or json")

	return cmd
}

func printStatement(w io.Writer, stmt query.Statement) error {
	fmt.Fprintln(w, stmt.Text)
	if len(stmt.Params) == 0 {
		return nil
	}
	return writeJSON(w, stmt.Params)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderRecords prints one row per record: id, visible fields, then each
// loaded relation as the id or ids it holds
func renderRecords(w io.Writer, entity *schema.EntitySchema, records *record.Collection, noColor bool) {
	headers := []string{"id"}
	var fields []string
	for _, attr := range entity.Fields() {
		if attr.IsHidden() {
			continue
		}
		fields = append(fields, attr.Name)
	}
	headers = append(headers, fields...)

	relations := loadedRelations(entity, records)
	headers = append(headers, relations...)

	table := ui.NewTable(w, headers, noColor)
	for _, rec := range records.Records() {
		id, _ := rec.ID()
		cells := []string{fmt.Sprint(id)}
		for _, name := range fields {
			cells = append(cells, formatValue(rec.Get(name)))
		}
		for _, name := range relations {
			cells = append(cells, formatRelation(rec, name))
		}
		table.AddRow(cells...)
	}
	table.Render()

	fmt.Fprintf(w, "\n%d %s\n", records.Len(), plural(records.Len(), "record"))
}

func loadedRelations(entity *schema.EntitySchema, records *record.Collection) []string {
	var names []string
	for _, attr := range entity.Relationships() {
		for _, rec := range records.Records() {
			if rec.Related(attr.Name) != nil || rec.HasCollection(attr.Name) {
				names = append(names, attr.Name)
				break
			}
		}
	}
	return names
}

func formatRelation(rec *record.Record, name string) string {
	if rec.HasCollection(name) {
		ids := rec.Collection(name).IDs()
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprint(id)
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	if related := rec.Related(name); related != nil {
		id, _ := related.ID()
		return fmt.Sprint(id)
	}
	return ""
}

func formatValue(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
