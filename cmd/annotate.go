package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lochist/internal/ui"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate COMMIT [TEXT...]",
	Short: "Attach a note to a snapshot",
	Long:  "Annotate sets the note shown next to COMMIT in the log. Without TEXT the current note is printed.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := newManager()
		if err != nil {
			return err
		}
		root, err := projectRoot(cmd, m)
		if err != nil {
			return err
		}
		printer := ui.New()
		ctx := cmd.Context()

		if remove, _ := cmd.Flags().GetBool("remove"); remove {
			if err := m.RemoveAnnotation(ctx, root, args[0]); err != nil {
				return err
			}
			printer.Success("note removed")
			return nil
		}
		if len(args) == 1 {
			note, err := m.Annotation(ctx, root, args[0])
			if err != nil {
				return err
			}
			if note == "" {
				printer.Info("no note")
				return nil
			}
			printer.Lines([]string{note})
			return nil
		}
		if err := m.Annotate(ctx, root, args[0], strings.Join(args[1:], " ")); err != nil {
			return err
		}
		printer.Success(fmt.Sprintf("annotated %s", args[0]))
		return nil
	},
}

func init() {
	annotateCmd.Flags().Bool("remove", false, "remove the note")
	rootCmd.AddCommand(annotateCmd)
}
