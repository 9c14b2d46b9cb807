package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/snapshot/internal/orchestrator"
	"github.com/GriffinCanCode/snapshot/internal/session"
)

// RunSummary reports a finished tick loop.
type RunSummary struct {
	Frames   uint64            `json:"frames"`
	Photos   int               `json:"photos"`
	Degraded bool              `json:"degraded"`
	Last     orchestrator.View `json:"last"`
}

func (r RunSummary) String() string {
	s := fmt.Sprintf("ran %d frame(s) on %s, %d photo(s) in session", r.Frames, r.Last.Tab, r.Photos)
	if r.Last.Diagnostic != "" {
		s += "\nlast diagnostic: " + r.Last.Diagnostic
	}
	return s
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		frames int
		tab    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the live preview loop",
		Long: `Run the tick loop against the configured frame source, rendering the
active tab every tick. Stops after --frames ticks or on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)

			var out RunSummary
			err := withManager(rootOpts, cmd, func(ctx context.Context, m *orchestrator.Manager) error {
				if tab != "" {
					t, err := session.ParseTab(tab)
					if err != nil {
						return err
					}
					if err := m.Session().SetTab(t); err != nil {
						return err
					}
				}

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
				defer stop()

				orch := m.Orchestrator()
				err := orch.Run(ctx, frames, func(v orchestrator.View) {
					out.Last = v
					if v.Diagnostic != "" {
						f.VerboseLog("frame %d: %s", orch.Frames(), v.Diagnostic)
					}
				})
				out.Frames = orch.Frames()
				out.Photos = m.Session().Len()
				out.Degraded = orch.Degraded()
				return err
			})
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(out)
		},
	}

	cmd.Flags().IntVar(&frames, "frames", 0, "stop after this many ticks (0 runs until interrupted)")
	cmd.Flags().StringVar(&tab, "tab", "", "tab to show (take-photo|histogram|save-photo)")
	return cmd
}
