package main

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/reflow-dev/reflow/internal/config"
	"github.com/reflow-dev/reflow/pkg/export"
	"github.com/reflow-dev/reflow/pkg/render"
	"github.com/reflow-dev/reflow/pkg/state"
	"github.com/reflow-dev/reflow/pkg/view"
)

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Export the project's pages to static HTML",
		Long: `Render every page document to a static HTML file.

Output goes to the configured directory, or directly to S3 when
export.s3_bucket is set in reflow.yaml.

Examples:
  reflow export
  reflow export ./site -o public`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runExport(cmd.Context(), dir, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from reflow.yaml)")

	return cmd
}

func runExport(ctx context.Context, dir, output string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if output != "" {
		cfg.Export.Output = output
	}

	pages, err := loadPages(dir)
	if err != nil {
		return err
	}

	var publisher export.Publisher
	if cfg.Export.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Export.S3Region))
		if err != nil {
			return err
		}
		publisher = export.NewS3Publisher(s3.NewFromConfig(awsCfg), cfg.Export.S3Bucket, cfg.Export.S3Prefix)
		info("publishing to s3://%s/%s", cfg.Export.S3Bucket, cfg.Export.S3Prefix)
	} else {
		publisher = export.NewDiskPublisher(cfg.Export.Output)
		info("publishing to %s/", cfg.Export.Output)
	}

	e := export.New(view.NewRegistry(), publisher)
	for _, p := range pages {
		p := p
		e.Add(p.Route, func(s *state.Store) render.Page {
			for k, v := range p.State {
				s.Set(k, v)
			}
			return render.Page{Title: p.Title, Lang: p.Lang, Body: p.Body}
		})
	}

	manifest, err := e.Run(ctx)
	if err != nil {
		return err
	}
	success("exported %d pages", len(manifest))
	return nil
}
