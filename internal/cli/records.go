package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/snapshot/internal/orchestrator"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the photos in the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			var out Listing
			err := withManager(rootOpts, cmd, func(_ context.Context, m *orchestrator.Manager) error {
				out = listing(m.Session())
				return nil
			})
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(out)
		},
	}
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select <position|id|label|next|prev>",
		Short: "Change the selected photo",
		Long: `Select a photo by 1-based position, ID or label. "next" and "prev"
step through the session and wrap around at either end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			var out RecordInfo
			err := withManager(rootOpts, cmd, func(_ context.Context, m *orchestrator.Manager) error {
				sess := m.Session()
				var idx int
				switch args[0] {
				case "next":
					idx = sess.Next()
				case "prev":
					idx = sess.Prev()
				default:
					i, err := resolve(sess, args[0])
					if err != nil {
						return err
					}
					idx = sess.Select(i)
				}
				var err error
				out, err = infoAt(sess, idx)
				return err
			})
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(out)
		},
	}
}

// NewMarkCommand creates mark (marked=true) or unmark.
func NewMarkCommand(rootOpts *RootOptions, marked bool) *cobra.Command {
	use, short := "mark", "Include photos in the next export"
	if !marked {
		use, short = "unmark", "Exclude photos from the next export"
	}

	return &cobra.Command{
		Use:   use + " [position|id|label]...",
		Short: short,
		Long:  short + ". With no argument the selected photo is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			if len(args) == 0 {
				args = []string{""}
			}
			var out []RecordInfo
			err := withManager(rootOpts, cmd, func(_ context.Context, m *orchestrator.Manager) error {
				sess := m.Session()
				for _, key := range args {
					i, err := resolve(sess, key)
					if err != nil {
						return err
					}
					if err := sess.SetMarked(i, marked); err != nil {
						return err
					}
					info, err := infoAt(sess, i)
					if err != nil {
						return err
					}
					out = append(out, info)
				}
				return nil
			})
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(RecordList(out))
		},
	}
}

type deleteStep int

const (
	deleteMark deleteStep = iota
	deleteConfirm
	deleteCancel
)

// NewDeleteCommand creates delete, confirm or cancel. Deleting only flags a
// photo; confirm removes it and cancel restores it.
func NewDeleteCommand(rootOpts *RootOptions, step deleteStep) *cobra.Command {
	use, short := "delete", "Request deletion of a photo"
	switch step {
	case deleteConfirm:
		use, short = "confirm", "Confirm a pending deletion"
	case deleteCancel:
		use, short = "cancel", "Cancel a pending deletion"
	}

	return &cobra.Command{
		Use:   use + " [position|id|label]",
		Short: short,
		Long:  short + ". With no argument the selected photo is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			key := ""
			if len(args) == 1 {
				key = args[0]
			}
			var out Listing
			err := withManager(rootOpts, cmd, func(_ context.Context, m *orchestrator.Manager) error {
				sess := m.Session()
				i, err := resolve(sess, key)
				if err != nil {
					return err
				}
				switch step {
				case deleteMark:
					err = sess.MarkDelete(i)
				case deleteConfirm:
					err = sess.ConfirmDelete(i)
				case deleteCancel:
					err = sess.CancelDelete(i)
				}
				if err != nil {
					return err
				}
				f.VerboseLog("%s applied to position %d", use, i+1)
				out = listing(sess)
				return nil
			})
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(out)
		},
	}
}
