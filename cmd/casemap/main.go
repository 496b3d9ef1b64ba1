package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ChicagoDave/casemap/internal/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "casemap",
		Short: "Case-point generation for the epidemic globe",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// A missing .env is fine; the environment may be set already.
			_ = godotenv.Load()
			logger.Setup()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(precalcCmd())
	rootCmd.AddCommand(serveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	var (
		out         string
		format      string
		constrained bool
	)

	cmd := &cobra.Command{
		Use:   "generate [project-path]",
		Short: "Generate the point cloud and write it as JSON or binary buffers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), args[0], out, format, constrained)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format: json or bin")
	cmd.Flags().BoolVar(&constrained, "constrained", false, "use the constrained-device decimation")
	return cmd
}

func validateCmd() *cobra.Command {
	var schemaOnly bool

	cmd := &cobra.Command{
		Use:   "validate [project-path]",
		Short: "Validate a project and its data sources without generating points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), args[0], schemaOnly)
		},
	}

	cmd.Flags().BoolVar(&schemaOnly, "schema-only", false, "check the project file only")
	return cmd
}

func summaryCmd() *cobra.Command {
	var (
		filter      string
		day         float64
		constrained bool
	)

	cmd := &cobra.Command{
		Use:   "summary [project-path]",
		Short: "Generate points and print per-region totals and point states",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd.Context(), args[0], filter, day, constrained)
		},
	}

	cmd.Flags().StringVarP(&filter, "region", "r", "", "country or state name (default all)")
	cmd.Flags().Float64VarP(&day, "day", "d", -1, "simulation day for point states (default last day)")
	cmd.Flags().BoolVar(&constrained, "constrained", false, "use the constrained-device decimation")
	return cmd
}

func precalcCmd() *cobra.Command {
	var (
		raster string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "precalc [project-path]",
		Short: "Build a density document from a population raster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrecalc(cmd.Context(), args[0], raster, out)
		},
	}

	cmd.Flags().StringVar(&raster, "raster", "", "raster URI (default sources.raster)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		port        int
		constrained bool
	)

	cmd := &cobra.Command{
		Use:   "serve [project-path]",
		Short: "Generate points and start the local dev server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), args[0], port, constrained)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (default server.port)")
	cmd.Flags().BoolVar(&constrained, "constrained", false, "use the constrained-device decimation")
	return cmd
}
