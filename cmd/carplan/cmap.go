package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"car-planner/internal/planner"
	"car-planner/internal/render"
)

type cmapOptions struct {
	*globalOptions
	overrides
	slices bool
}

func newCMapCmd(g *globalOptions) *cobra.Command {
	o := &cmapOptions{globalOptions: g}
	cmd := &cobra.Command{
		Use:   "cmap <config>",
		Short: "Build the configuration map and save it next to the occupancy map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args[0])
		},
	}
	o.flags(cmd)
	cmd.Flags().BoolVar(&o.slices, "slices", false, "also render one image per heading")
	return cmd
}

func (o *cmapOptions) run(cmd *cobra.Command, path string) error {
	p, err := o.load(path)
	if err != nil {
		return err
	}
	// always rebuild
	p.CMap = ""
	p.Start, p.Goal = nil, nil
	s, err := planner.Open(cmd.Context(), p)
	if err != nil {
		return err
	}
	name, err := s.SaveCMap()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "wrote %s (%v cells)\n", name, s.CMap().Dims())
	if !o.slices {
		return nil
	}
	files, err := render.SaveCMapSlices(s.CMap(), o.outDir)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintf(out, "wrote %s\n", f)
	}
	return nil
}
