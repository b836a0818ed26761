package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/milk9111/tilecanvas/blobstore"
	"github.com/milk9111/tilecanvas/bridge"
	"github.com/milk9111/tilecanvas/config"
	"github.com/milk9111/tilecanvas/layout"
)

type globalFlags struct {
	verbose    bool
	configPath string
	store      string
}

func execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:          "tilecanvas",
		Short:        "Arrange web pages as tiles on an infinite canvas",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if flags.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", config.DefaultPath(), "config file (.yaml, .yml or .toml)")
	root.PersistentFlags().StringVar(&flags.store, "store", "", "layout store location, overrides the config file")

	run := newRunCmd(&flags)
	root.RunE = run.RunE
	root.Flags().AddFlagSet(run.Flags())

	root.AddCommand(run)
	root.AddCommand(newLayoutCmd(&flags))
	root.AddCommand(newOpenCmd(&flags))
	return root
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.LoadOrDefault(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.store != "" {
		cfg.Store.Location = flags.store
	}
	return cfg, nil
}

func newLayoutCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Inspect or reset the saved layout",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the saved layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), flags, func(ctx context.Context, blobs blobstore.Store) error {
				blob, err := blobs.Get(ctx, layout.Key)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if blob == nil {
					fmt.Fprintln(out, "no saved layout; the demo layout will be shown")
					return nil
				}
				records := layout.Deserialize(blob)
				if records == nil {
					fmt.Fprintln(out, "saved layout is malformed; the demo layout will be shown")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tADDRESS\tPOSITION\tSIZE\tSTATE")
				for _, r := range records {
					state := "loaded"
					if r.Unloaded {
						state = "unloaded"
					}
					fmt.Fprintf(tw, "%d\t%s\t%g,%g\t%gx%g\t%s\n",
						r.ID, r.Address, r.Position.X, r.Position.Y, r.Size.Width, r.Size.Height, state)
				}
				return tw.Flush()
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete the saved layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), flags, func(ctx context.Context, blobs blobstore.Store) error {
				if err := blobs.Delete(ctx, layout.Key); err != nil {
					return err
				}
				loggerFromContext(ctx).Info("layout reset")
				return nil
			})
		},
	})
	return cmd
}

func withStore(ctx context.Context, flags *globalFlags, fn func(context.Context, blobstore.Store) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	blobs, err := blobstore.Open(ctx, cfg.Store.Location)
	if err != nil {
		return err
	}
	defer blobs.Close()
	return fn(ctx, blobs)
}

func newOpenCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "open <url>",
		Short: "Open a page in a running tilecanvas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := loadConfig(flags)
				if err != nil {
					return err
				}
				addr = cfg.Bridge.Addr
			}
			if err := bridge.Open(cmd.Context(), addr, args[0]); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Info("opened", "url", args[0], "bridge", addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "bridge", "", "bridge address of the running canvas")
	return cmd
}
