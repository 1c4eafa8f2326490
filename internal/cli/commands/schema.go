package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/graphorm/internal/cli/ui"
	"github.com/conduit-lang/graphorm/internal/orm/schema"
)

func newSchemaCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [Entity]",
		Short: "Show the entities, attributes and relationships of the schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load()
			if err != nil {
				return err
			}

			names := e.registry.List()
			if len(args) == 1 {
				if _, err := e.entity(cmd.ErrOrStderr(), args[0]); err != nil {
					return err
				}
				names = []string{args[0]}
			}

			graph := e.registry.Graph()
			out := cmd.OutOrStdout()
			for i, name := range names {
				if i > 0 {
					fmt.Fprintln(out)
				}
				entity, _ := e.registry.Get(name)
				lines := describe(entity)
				if refs := graph.Dependents(entity.Name); len(refs) > 0 {
					lines = append(lines, "referenced by: "+strings.Join(refs, ", "))
				}
				ui.Section(out, fmt.Sprintf("%s (%s)", entity.Name, entity.PatternName("")), lines, opts.noColor)
			}

			if cycles := graph.DetectCycles(); len(cycles) > 0 && len(args) == 0 {
				warn := color.New(color.FgYellow)
				if opts.noColor {
					warn.DisableColor()
				}
				warn.Fprintf(out, "\nRelationship cycles (load them with explicit --with paths):\n%s\n", schema.FormatCycles(cycles))
			}
			return nil
		},
	}
}

func describe(entity *schema.EntitySchema) []string {
	var lines []string
	for _, attr := range entity.Attributes() {
		if attr.IsRelationship() {
			lines = append(lines, describeRelationship(attr))
			continue
		}

		line := attr.Name
		if f, ok := attr.Field.(*schema.Field); ok {
			line += ": " + f.Type.String()
			if f.IsRequired() {
				line += " (required)"
			}
		}
		lines = append(lines, line)
	}
	return lines
}

func describeRelationship(attr *schema.Attribute) string {
	rel := attr.Relationship

	arrow := "-[%s]->"
	switch rel.Direction {
	case schema.Incoming:
		arrow = "<-[%s]-"
	case schema.Both:
		arrow = "-[%s]-"
	}

	line := fmt.Sprintf("%s %s %s", attr.Name, fmt.Sprintf(arrow, rel.MatchType()), rel.TargetName)
	if rel.IsMany() {
		line += " (many)"
	}

	var notes []string
	if rel.With {
		notes = append(notes, "loaded by default")
	}
	for _, a := range rel.Attributes {
		notes = append(notes, "edge."+a.Name)
	}
	if len(notes) > 0 {
		line += " [" + strings.Join(notes, ", ") + "]"
	}
	return line
}
