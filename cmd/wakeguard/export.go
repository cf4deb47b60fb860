package main

import (
	"fmt"
	"path/filepath"

	"github.com/ayusman/wakeguard/internal/store"
	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Re-export an archived session to CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if _, err := st.Sessions().GetByID(id); err != nil {
			return fmt.Errorf("session %s: %w", id, err)
		}

		samples, err := st.Samples().ListBySession(id)
		if err != nil {
			return fmt.Errorf("load samples: %w", err)
		}

		out := exportOut
		if out == "" {
			out = filepath.Join(cfg.OutputDir, id+".csv")
		}

		rows, err := store.ToDataset(samples).Export(out)
		if err != nil {
			return err
		}
		if rows == 0 {
			fmt.Printf("Session %s has no samples, nothing written\n", id)
			return nil
		}

		log.WithField("session", id).WithField("rows", rows).Info("Session exported")
		fmt.Printf("Saved %d rows to: %s\n", rows, out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output CSV path (default <output-dir>/<session-id>.csv)")
	rootCmd.AddCommand(exportCmd)
}
