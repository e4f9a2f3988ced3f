// ABOUTME: Visualization CLI commands
// ABOUTME: Handles the terminal dashboard and pipeline graph generation
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/harperreed/agencycrm/store"
	"github.com/harperreed/agencycrm/viz"
)

// VizDashboardCommand prints the ASCII dashboard.
func VizDashboardCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("viz dashboard")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprint(out, viz.RenderDashboard(st.Metrics()))
	fmt.Fprintln(out)
	fmt.Fprint(out, viz.RenderPipeline(viz.Stages(st.Pipeline())))
	printNotice(st)
	return nil
}

// VizGraphPipelineCommand generates the pipeline graph in DOT.
func VizGraphPipelineCommand(ctx context.Context, st *store.Store, args []string) error {
	fs := newFlagSet("viz graph pipeline")
	output := fs.String("output", "", "Output file (default: stdout)")
	detailed := fs.Bool("clients", false, "Include every active client")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dot, err := viz.GeneratePipelineGraph(ctx, st.Pipeline(), *detailed)
	if err != nil {
		return err
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(dot), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", *output, err)
		}
		fmt.Fprintf(out, "✓ Graph written to %s\n", *output)
		return nil
	}

	fmt.Fprintln(out, dot)
	return nil
}
