package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/hammamikhairi/ottoflow/internal/availability"
	"github.com/hammamikhairi/ottoflow/internal/diagram"
	"github.com/hammamikhairi/ottoflow/internal/display"
	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/recipegraph"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newListCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		GroupID: GroupRecipes,
		Short:   "List recipes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				summaries []domain.RecipeSummary
				err       error
			)
			if search != "" {
				summaries, err = a.recipes.Search(cmd.Context(), search)
			} else {
				summaries, err = a.engine.ListRecipes(cmd.Context())
			}
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recipes found.")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "NAME", "STEPS", "TAGS").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				})
			for _, s := range summaries {
				t.Row(s.ID, s.Name, strconv.Itoa(s.StepCount), strings.Join(s.Tags, ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only recipes whose name, description or tags match")
	return cmd
}

func newGraphCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "graph <recipe>",
		GroupID: GroupRecipes,
		Short:   "Print the step dependency graph",
		Long: `Print which steps each step waits on. Step B waits on step A when B
uses a product of A, directly or through other steps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.recipeArg(cmd, args); err != nil {
				return err
			}
			r, g, err := a.engine.Graph(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printGraph(cmd.OutOrStdout(), r, g)
			return nil
		},
	}
}

func printGraph(w io.Writer, r *domain.Recipe, g *recipegraph.Graph) {
	fmt.Fprintf(w, "%s: %d steps, %d edges\n", r.Name, g.Len(), len(g.Edges()))
	fmt.Fprintf(w, "Start with: %s\n\n", display.StepList(g.Roots()))

	for _, e := range g.Edges() {
		fmt.Fprintf(w, "  %d -> %d\n", e.From+1, e.To+1)
	}
	if len(g.Edges()) > 0 {
		fmt.Fprintln(w)
	}

	for i := range r.Steps {
		line := fmt.Sprintf("%2d. %s", i+1, r.Steps[i].Preparation)
		if anc := g.Ancestors(i); len(anc) > 0 {
			line += "  after " + display.StepList(anc)
		}
		fmt.Fprintln(w, line)
	}
}

func newAvailableCmd(a *app) *cobra.Command {
	var (
		step     int
		typeName string
	)
	cmd := &cobra.Command{
		Use:     "available <recipe>",
		GroupID: GroupRecipes,
		Short:   "Show earlier products a step could still use",
		Long: `Show the products made before step N that no earlier step has used
up. Each line gives the reference to put in a recipe file ("from").

--type is ingredient, instrument, vessel or all.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.recipeArg(cmd, args)
			if err != nil {
				return err
			}
			if step < 1 || step > len(r.Steps)+1 {
				return fmt.Errorf("--step must be between 1 and %d: %w", len(r.Steps)+1, domain.ErrStepOutOfRange)
			}
			upto := step - 1
			w := cmd.OutOrStdout()

			if typeName == "all" {
				printSuggestions(w, "Ingredients", availability.IngredientSuggestions(r, upto))
				printSuggestions(w, "Instruments", availability.InstrumentSuggestions(r, upto))
				printSuggestions(w, "Vessels", availability.VesselSuggestions(r, upto))
				return nil
			}

			t, err := domain.ParseProductType(typeName)
			if err != nil {
				return err
			}
			candidates := availability.AvailableProducts(r, upto, t)
			if len(candidates) == 0 {
				fmt.Fprintf(w, "No %s products available before step %d.\n", t, step)
				return nil
			}
			for _, c := range candidates {
				fmt.Fprintf(w, "%-8s %s (step %d)\n", refString(c.StepIndex, c.ProductIndex), c.Product.Name, c.StepIndex+1)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&step, "step", 1, "step position (1-based) the product would be used at")
	cmd.Flags().StringVar(&typeName, "type", "ingredient", "product type: ingredient, instrument, vessel or all")
	return cmd
}

func printSuggestions[U domain.Use](w io.Writer, title string, suggestions []availability.Suggestion[U]) {
	fmt.Fprintf(w, "%s:\n", title)
	if len(suggestions) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, s := range suggestions {
		fmt.Fprintf(w, "  %-8s %s\n", refString(s.StepIndex, s.ProductIndex), s.Use.UseName())
	}
}

// refString is the recipe-file form of a product reference.
func refString(stepIndex, productIndex int) string {
	return fmt.Sprintf("%d.%d", stepIndex+1, productIndex+1)
}

func newReadyCmd(a *app) *cobra.Command {
	var done []int
	cmd := &cobra.Command{
		Use:     "ready <recipe>",
		GroupID: GroupRecipes,
		Short:   "Show which steps can be done, given the steps already done",
		Example: "  ottoflow ready vegetable-stir-fry --done 2,5",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.recipeArg(cmd, args); err != nil {
				return err
			}
			r, g, err := a.engine.Graph(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			v := domain.NewCompletionVector(len(r.Steps))
			for _, n := range done {
				if n < 1 || n > len(r.Steps) {
					return fmt.Errorf("--done %d of %d steps: %w", n, len(r.Steps), domain.ErrStepOutOfRange)
				}
				v[n-1] = domain.Completed
			}

			w := cmd.OutOrStdout()
			for i := range r.Steps {
				state := "ready"
				switch {
				case !v.IsPending(i):
					state = "done"
				case recipegraph.Blocked(g, v, i):
					state = "blocked"
				}
				fmt.Fprintf(w, "%2d. %-12s %s\n", i+1, r.Steps[i].Preparation, state)
			}
			fmt.Fprintf(w, "\nReady now: %s\n", orNone(display.StepList(recipegraph.ReadySteps(g, v))))
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&done, "done", nil, "steps already done (1-based, comma separated)")
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func newDiagramCmd(a *app) *cobra.Command {
	var direction, kind string
	cmd := &cobra.Command{
		Use:     "diagram <recipe>",
		Aliases: []string{"mermaid"},
		GroupID: GroupRecipes,
		Short:   "Print the recipe as a Mermaid flowchart",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.recipeArg(cmd, args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("direction") {
				direction = a.cfg.Diagram.Direction
			}
			if !cmd.Flags().Changed("kind") {
				kind = a.cfg.Diagram.Kind
			}
			out := diagram.RenderDiagramAs(r, diagram.ParseDirection(direction), diagram.Kind(kind))
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&direction, "direction", "d", "TB", "layout direction: TB, LR, BT or RL")
	cmd.Flags().StringVar(&kind, "kind", "flowchart", "diagram keyword: flowchart or graph")
	return cmd
}
