package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/snapshot/internal/frame"
	"github.com/GriffinCanCode/snapshot/internal/histogram"
	"github.com/GriffinCanCode/snapshot/internal/orchestrator"
)

// BinRow is one non-empty histogram bin.
type BinRow struct {
	Bin    int                       `json:"bin"`
	Values [histogram.Series]float32 `json:"values"`
}

// HistogramReport is the output of the histogram command.
type HistogramReport struct {
	Label  string                   `json:"label"`
	Space  histogram.Space          `json:"space"`
	Series [histogram.Series]string `json:"series"`
	Bins   []BinRow                 `json:"bins"`

	text string
}

func (r HistogramReport) String() string { return r.text }

func histogramReport(rec *frame.Record, space histogram.Space) (HistogramReport, error) {
	h := histogram.New(space)
	if err := h.Update(rec); err != nil {
		return HistogramReport{}, err
	}

	r := HistogramReport{
		Label:  rec.Label,
		Space:  space,
		Series: h.SeriesNames(),
		Bins:   []BinRow{},
		text:   strings.TrimRight(h.String(), "\n"),
	}
	for i, bin := range h.Bins {
		if bin != ([histogram.Series]float32{}) {
			r.Bins = append(r.Bins, BinRow{Bin: i, Values: bin})
		}
	}
	return r, nil
}

// NewHistogramCommand creates the histogram command.
func NewHistogramCommand(rootOpts *RootOptions) *cobra.Command {
	var space string

	cmd := &cobra.Command{
		Use:   "histogram [position|id|label]",
		Short: "Show the colour histogram of a photo",
		Long: `Show the 64-bin colour histogram of a photo (the selected one by
default). --space switches between rgb and oklab and is remembered.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			key := ""
			if len(args) == 1 {
				key = args[0]
			}

			var out HistogramReport
			err := withManager(rootOpts, cmd, func(_ context.Context, m *orchestrator.Manager) error {
				sess := m.Session()
				if space != "" {
					sp, err := histogram.ParseSpace(space)
					if err != nil {
						return err
					}
					sess.SetHistogramMode(sp)
				}
				i, err := resolve(sess, key)
				if err != nil {
					return err
				}
				rec, err := sess.At(i)
				if err != nil {
					return err
				}
				out, err = histogramReport(rec, sess.HistogramMode())
				return err
			})
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(out)
		},
	}

	cmd.Flags().StringVar(&space, "space", "", "colour space (rgb|oklab)")
	return cmd
}
