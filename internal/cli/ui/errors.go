package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// ErrorOptions configures an error message
type ErrorOptions struct {
	Context      string
	Problem      string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError renders an error as a headline, an optional list of close
// matches and the commands that help recover:
//
//	ENTITY NOT FOUND: Cannot find entity 'Usr'.
//	   Did you mean: User?
//	   → List entities: graphorm schema
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	if opts.NoColor {
		red.DisableColor()
		yellow.DisableColor()
		cyan.DisableColor()
	}

	if opts.Context != "" {
		red.Fprintf(&b, "%s: %s\n", strings.ToUpper(opts.Context), opts.Problem)
	} else {
		red.Fprintf(&b, "%s\n", opts.Problem)
	}
	if len(opts.Suggestions) > 0 {
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}
	for _, cmd := range opts.HelpCommands {
		cyan.Fprintf(&b, "   → %s\n", cmd)
	}
	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// EntityNotFoundError reports an entity name missing from the schema
func EntityNotFoundError(name string, known []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:      "entity not found",
		Problem:      fmt.Sprintf("Cannot find entity '%s'.", name),
		Suggestions:  Suggest(name, known, 3),
		HelpCommands: []string{"List entities: graphorm schema"},
		NoColor:      noColor,
	})
}

// Suggest returns up to max candidates within edit distance 3 of target,
// closest first, ignoring case
func Suggest(target string, candidates []string, max int) []string {
	type match struct {
		value    string
		distance int
	}

	var matches []match
	for _, c := range candidates {
		if d := editDistance(strings.ToLower(target), strings.ToLower(c)); d <= 3 {
			matches = append(matches, match{c, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	var out []string
	for i := 0; i < len(matches) && i < max; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// editDistance is the Levenshtein distance between a and b, over runes
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = minInt(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
