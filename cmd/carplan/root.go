package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"car-planner/internal/config"
	"car-planner/internal/logging"
	"car-planner/internal/planner"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	logLevel  string
	logFormat string
	outDir    string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	plan := &planOptions{globalOptions: opts}
	root := &cobra.Command{
		Use:   "carplan [config]",
		Short: "Incremental motion planner for car-like vehicles",
		Long: `carplan loads an occupancy map, builds or loads the configuration map for
the vehicle footprint and plans a kinematically feasible path between the
configured start and goal poses.

The configuration file is a .cfg key/value file, YAML or HCL.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			format, err := logging.ParseFormat(opts.logFormat)
			if err != nil {
				return err
			}
			log := logging.New(cmd.ErrOrStderr(), level, format)
			slog.SetDefault(log)
			cmd.SetContext(logging.WithLogger(cmd.Context(), log))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return plan.run(cmd, args[0])
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "auto", "log format (auto, text, json)")
	pf.StringVar(&opts.outDir, "out-dir", ".", "directory for rendered images")
	plan.flags(root)

	root.AddCommand(
		newPlanCmd(opts),
		newCMapCmd(opts),
		newServeCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// overrides are flags that replace values of the configuration file.
type overrides struct {
	mapPath string
	cmap    string
}

func (o *overrides) flags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.mapPath, "map", "", "occupancy map, overrides the config")
	cmd.Flags().StringVar(&o.cmap, "cmap", "", "configuration map, overrides the config")
}

// load reads the configuration file and applies flag overrides.
func (o *overrides) load(path string) (*config.Params, error) {
	p, err := config.Parse(path)
	if err != nil {
		return nil, err
	}
	if o.mapPath != "" {
		p.Map = o.mapPath
	}
	if o.cmap != "" {
		p.CMap = o.cmap
	}
	return p, p.Validate()
}

// open loads the session described by the config file at path.
func open(cmd *cobra.Command, o *overrides, path string) (*planner.Session, error) {
	p, err := o.load(path)
	if err != nil {
		return nil, err
	}
	return planner.Open(cmd.Context(), p)
}
