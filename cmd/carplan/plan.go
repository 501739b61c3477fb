package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"car-planner/internal/logging"
)

type planOptions struct {
	*globalOptions
	overrides
}

func newPlanCmd(g *globalOptions) *cobra.Command {
	o := &planOptions{globalOptions: g}
	cmd := &cobra.Command{
		Use:   "plan <config>",
		Short: "Plan once and render the path and the start primitives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args[0])
		},
	}
	o.flags(cmd)
	return cmd
}

// run plans and renders. Planning failures are reported, the images are
// still written with the start and goal markers.
func (o *planOptions) run(cmd *cobra.Command, path string) error {
	s, err := open(cmd, &o.overrides, path)
	if err != nil {
		return err
	}
	log := logging.FromContext(cmd.Context())
	out := cmd.OutOrStdout()

	p := s.Params()
	if !p.HasStart() || !p.HasGoal() {
		log.Warn("start or goal missing, nothing to plan")
	} else if res, err := s.Plan(cmd.Context()); err != nil {
		fmt.Fprintf(out, "no path: %v\n", err)
	} else {
		fmt.Fprintf(out, "path: %d edges, cost %.4f\n", res.Len(), res.Cost)
	}

	files, err := s.Render(o.outDir)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintf(out, "wrote %s\n", f)
	}
	return nil
}
