// commands.go
//
// Maintenance subcommands that run without the HTTP server:
//   - synth: synthesize a secret for a tier, optionally with a fixed target
//     and seed so the output is reproducible.
//   - modes: print the loaded tiers as a table.
//
// Both honour the root --modes-file flag.

package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/robalobadob/mathle/internal/equation"
	"github.com/robalobadob/mathle/internal/modes"
	"github.com/robalobadob/mathle/internal/synth"
)

func loadModes(cmd *cobra.Command) (*modes.Registry, error) {
	path, _ := cmd.Flags().GetString("modes-file")
	return modes.Init(path)
}

func newSynthCmd() *cobra.Command {
	var (
		mode   string
		target int
		budget int
		seed   uint64
	)
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize a secret equation for a tier",
		Long: `Picks a target from the tier (or uses --target) and searches the tier's
pools for an equation that evaluates exactly to it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadModes(cmd)
			if err != nil {
				return err
			}
			m, err := reg.Get(mode)
			if err != nil {
				return err
			}

			s := synth.Synthesizer{Budget: budget}
			if cmd.Flags().Changed("seed") {
				s.Rand = synth.NewSeeded(seed, seed)
			}
			if !cmd.Flags().Changed("target") {
				target = m.Targets[s.Source().IntN(len(m.Targets))]
			}

			res := s.Synthesize(target, m.NumberPool(), m.OperatorPool())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s = %s\n", res.Equation, equation.Display(res.Equation[:]))
			fmt.Fprintf(out, "target=%d attempts=%d fallback=%t\n", target, res.Attempts, res.Fallback)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", modes.DefaultName, "difficulty tier")
	cmd.Flags().IntVarP(&target, "target", "t", 0, "target value (default: random from the tier)")
	cmd.Flags().IntVar(&budget, "budget", synth.DefaultBudget, "maximum candidate equations to evaluate")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for a reproducible search")
	return cmd
}

func newModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List the difficulty tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadModes(cmd)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tATTEMPTS\tBASE\tSTRICT\tOPERATORS\tTARGETS")
			for _, m := range reg.All() {
				ops := make([]string, 0, len(m.OperatorPool()))
				for _, op := range m.OperatorPool() {
					ops = append(ops, string(op))
				}
				targets := slices.Clone(m.Targets)
				slices.Sort(targets)
				fmt.Fprintf(tw, "%s\t%d\t%d\t%t\t%s\t%v\n",
					m.Name, m.Attempts, m.BaseScore, m.Strict, strings.Join(ops, " "), targets)
			}
			return tw.Flush()
		},
	}
}
