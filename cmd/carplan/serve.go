package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"car-planner/internal/logging"
	"car-planner/internal/server"
	"car-planner/internal/watch"
)

type serveOptions struct {
	*globalOptions
	overrides
	addr  string
	watch bool
}

func newServeCmd(g *globalOptions) *cobra.Command {
	o := &serveOptions{globalOptions: g}
	cmd := &cobra.Command{
		Use:   "serve <config>",
		Short: "Serve the planning session over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args[0])
		},
	}
	o.flags(cmd)
	cmd.Flags().StringVar(&o.addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&o.watch, "watch", false, "reload the occupancy map when it changes")
	return cmd
}

func (o *serveOptions) run(cmd *cobra.Command, path string) error {
	s, err := open(cmd, &o.overrides, path)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	log := logging.FromContext(ctx)
	if p := s.Params(); p.HasStart() && p.HasGoal() {
		// a failed initial plan is logged by the session and retried per request
		_, _ = s.Plan(ctx)
	}

	srv := server.New(s, log)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx, o.addr) })
	if o.watch {
		w, err := watch.New(s, watch.WithLock(srv.Locker()), watch.WithLogger(log))
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(ctx) })
	}
	return g.Wait()
}
