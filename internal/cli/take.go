package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/orchestrator"
)

// TakeResult describes one photo taken.
type TakeResult struct {
	RecordInfo
	Duplicate bool `json:"duplicate"`
}

func (r TakeResult) String() string {
	s := fmt.Sprintf("took %s (%dx%d), %d in session", r.Label, r.Width, r.Height, r.Position)
	if r.Duplicate {
		s += "; looks like the previous photo"
	}
	return s
}

// TakeResults prints one photo per line.
type TakeResults []TakeResult

func (t TakeResults) String() string {
	lines := make([]string, len(t))
	for i, r := range t {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}

// NewTakeCommand creates the take command.
func NewTakeCommand(rootOpts *RootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take full-quality photos and add them to the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			if count < 1 {
				return f.Fail(apperrors.Newf(apperrors.InvalidArgument, "--count must be at least 1, got %d", count))
			}

			var out TakeResults
			err := withManager(rootOpts, cmd, func(ctx context.Context, m *orchestrator.Manager) error {
				for n := 0; n < count; n++ {
					_, dup, err := m.Orchestrator().TakePhoto(ctx)
					if err != nil {
						return err
					}
					info, err := infoAt(m.Session(), m.Session().Len()-1)
					if err != nil {
						return err
					}
					out = append(out, TakeResult{RecordInfo: info, Duplicate: dup})
				}
				return nil
			})
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(out)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of photos to take")
	return cmd
}
