package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/vango-dev/verdant/internal/config"
	"github.com/vango-dev/verdant/internal/errors"
	"github.com/vango-dev/verdant/pkg/export"
)

func exportCmd() *cobra.Command {
	var (
		output      string
		concurrency int
		payloads    bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Prerender cached pages to a directory or S3",
		Long: `Prerender every static and revalidating page, expanding parameterized
routes through their static params, and write the documents to a
directory or an S3 bucket.

Pages are written as <path>/index.html. With --payloads, client
navigation payloads are written under the data prefix as <path>.json.

S3 credentials come from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
AWS_SESSION_TOKEN.

Examples:
  verdant export
  verdant export --output=public --payloads
  verdant export --output=s3://my-bucket/site/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Export.Output = output
			}
			if concurrency > 0 {
				cfg.Export.Concurrency = concurrency
			}
			if cmd.Flags().Changed("payloads") {
				cfg.Export.Payloads = payloads
			}
			return runExport(cfg)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Directory or s3://bucket/prefix (default from config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel renders (default from config)")
	cmd.Flags().BoolVar(&payloads, "payloads", false, "Also write navigation payloads")

	return cmd
}

func runExport(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)
	app, err := newApp(cfg, logger, appOptions{})
	if err != nil {
		return err
	}

	sink, target, err := newSink(cfg)
	if err != nil {
		return err
	}

	opts := []export.Option{
		export.WithConcurrency(cfg.Export.Concurrency),
		export.WithLogger(logger),
	}
	if cfg.Export.Payloads {
		opts = append(opts, export.WithPayloads(app.Navigation(), cfg.Paths.DataPrefix))
	}

	info("Exporting to %s...", target)
	report, err := export.New(app.Engine(), sink, opts...).Run(ctx)
	if err != nil {
		return errors.New("V141").Wrap(err)
	}

	success("Exported %d pages", len(report.Written))
	for _, p := range report.Skipped {
		warn("Skipped %s", p)
	}
	return nil
}

// newSink picks the export target from the output setting.
func newSink(cfg *config.Config) (export.Sink, string, error) {
	out := cfg.OutputPath()
	if !strings.HasPrefix(out, "s3://") {
		return export.NewDirSink(out), out, nil
	}

	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(out, "s3://"), "/")
	if bucket == "" {
		return nil, "", errors.New("V160").WithDetail("No bucket in " + out)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	s3cfg := cfg.Export.S3
	region := s3cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	opts := s3.Options{
		Region:       region,
		UsePathStyle: s3cfg.PathStyle,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
				Source:          "environment",
			}, nil
		}),
	}
	if s3cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(s3cfg.Endpoint)
	}
	return export.NewS3Sink(s3.New(opts), bucket, prefix), out, nil
}
