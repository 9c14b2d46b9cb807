package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/snapshot/internal/deliver"
	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/orchestrator"
)

// ExportReport is the output of export.
type ExportReport struct {
	orchestrator.ExportResult
	Target string `json:"target"`
}

func (r ExportReport) String() string {
	return fmt.Sprintf("exported %d photo(s) to %s (%s, %d bytes)", r.Records, r.Target, r.Filename, r.Bytes)
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		output  string
		jpeg    bool
		png     bool
		quality int
		dataURL bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export marked photos as a zip archive",
		Long: `Pack every photo marked for export into a zip archive and deliver it.

-o names the target directory; "-o -" streams the archive to stdout, as a
base64 data URL with --data-url. Format flags are remembered for the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			flags := cmd.Flags()

			toStdout := output == "-"
			if toStdout && rootOpts.Format == "json" && !dataURL {
				return f.Fail(apperrors.New(apperrors.InvalidArgument, "binary output cannot share stdout with json; use --data-url"))
			}

			var mopts []orchestrator.ManagerOption
			target := output
			switch {
			case toStdout:
				target = "stdout"
				mopts = append(mopts, orchestrator.WithDeliverer(deliver.NewWriterDeliverer(cmd.OutOrStdout(), dataURL)))
			case output != "":
				mopts = append(mopts, orchestrator.WithDeliverer(deliver.NewDirDeliverer(output)))
			}

			var out ExportReport
			err := withManager(rootOpts, cmd, func(ctx context.Context, m *orchestrator.Manager) error {
				sess := m.Session()
				eo := sess.ExportOptions()
				if flags.Changed("jpeg") {
					eo.JPEG = jpeg
				}
				if flags.Changed("png") {
					eo.PNG = png
				}
				if flags.Changed("quality") {
					eo.Quality = quality
				}
				sess.SetExportOptions(eo)

				if target == "" {
					target = m.Config().OutputDir
				}
				res, err := m.Orchestrator().Export(ctx)
				if err != nil {
					return err
				}
				out = ExportReport{ExportResult: res, Target: target}
				return nil
			}, mopts...)
			if err != nil {
				return f.Fail(err)
			}

			// stdout carries only the archive in text mode.
			if toStdout && rootOpts.Format == "text" {
				f.VerboseLog("%s", out)
				return nil
			}
			return f.Success(out)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", `target directory, or "-" for stdout (default OUTPUT_DIR)`)
	cmd.Flags().BoolVar(&jpeg, "jpeg", true, "include JPEG entries")
	cmd.Flags().BoolVar(&png, "png", false, "include PNG entries")
	cmd.Flags().IntVar(&quality, "quality", 0, "JPEG quality 1-100")
	cmd.Flags().BoolVar(&dataURL, "data-url", false, "write stdout output as a base64 data URL")
	return cmd
}
