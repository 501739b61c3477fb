package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"car-planner/internal/logging"
	"car-planner/internal/watch"
)

type watchOptions struct {
	*globalOptions
	overrides
	saveCMap bool
}

func newWatchCmd(g *globalOptions) *cobra.Command {
	o := &watchOptions{globalOptions: g}
	cmd := &cobra.Command{
		Use:   "watch <config>",
		Short: "Replan and re-render whenever the occupancy map changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args[0])
		},
	}
	o.flags(cmd)
	cmd.Flags().BoolVar(&o.saveCMap, "save-cmap", false, "rewrite the cached configuration map after every change")
	return cmd
}

func (o *watchOptions) run(cmd *cobra.Command, path string) error {
	s, err := open(cmd, &o.overrides, path)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	log := logging.FromContext(ctx)
	out := cmd.OutOrStdout()

	if p := s.Params(); p.HasStart() && p.HasGoal() {
		_, _ = s.Plan(ctx)
	}
	if _, err := s.Render(o.outDir); err != nil {
		return err
	}

	w, err := watch.New(s,
		watch.WithOutDir(o.outDir),
		watch.WithSaveCMap(o.saveCMap),
		watch.WithLogger(log),
		watch.OnUpdate(func(u watch.Update) {
			switch {
			case u.PlanErr != nil:
				fmt.Fprintf(out, "%d cells changed, no path: %v\n", u.Changed, u.PlanErr)
			case !u.Path.Empty():
				fmt.Fprintf(out, "%d cells changed, path: %d edges, cost %.4f\n", u.Changed, u.Path.Len(), u.Path.Cost)
			default:
				fmt.Fprintf(out, "%d cells changed\n", u.Changed)
			}
		}),
	)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
