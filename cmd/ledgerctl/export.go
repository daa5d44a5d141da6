package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/statements"
)

func exportCmd(open opener) *cobra.Command {
	var month, output string
	var upload bool

	cmd := &cobra.Command{
		Use:   "export [creatorId]",
		Short: "Write a creator's monthly statement as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := statements.ValidateMonth(month); err != nil {
				return err
			}
			rec, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			if upload {
				cfg, err := statements.LoadConfig()
				if err != nil {
					return err
				}
				client, err := statements.NewS3Client(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				exporter := statements.NewExporter(rec, statements.NewS3Uploader(client, cfg.BucketName), cfg)
				location, err := exporter.Export(cmd.Context(), args[0], month)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), location)
				return nil
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			n, err := statements.Render(cmd.Context(), rec, args[0], month, w)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d entries written\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "Statement month (YYYY-MM)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for stdout")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload to the configured S3 bucket instead")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}
