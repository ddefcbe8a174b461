package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/gatehouse"
	"github.com/dmitrymomot/gatehouse/pkg/logger"
)

func newRoutesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the merged route table in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			opts := append(kernelOptions(cfg), gatehouse.WithCustomLogger(logger.NewNope()))
			app, err := gatehouse.New(opts...)
			if err != nil {
				return err
			}
			return printRoutes(cmd, app)
		},
	}
}

func printRoutes(cmd *cobra.Command, app *gatehouse.App) error {
	d := app.Dispatcher()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATTERN\tMETHODS\tTARGET\tKIND\tCATEGORY")
	for _, e := range d.Table().Entries() {
		methods := "*"
		if len(e.Methods) > 0 {
			methods = strings.Join(e.Methods, ",")
		}
		res, _ := d.Lookup(e.Target)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Pattern, methods, e.Target, res.Kind, res.Category)
	}
	return w.Flush()
}
