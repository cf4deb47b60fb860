package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ayusman/wakeguard/internal/protocol"
	"github.com/spf13/cobra"
)

var protocolJSON bool

var protocolCmd = &cobra.Command{
	Use:   "protocol",
	Short: "Print the active stage protocol",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProtocol()
		if err != nil {
			return err
		}

		if protocolJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "#\tLABEL\tTARGET\tDESCRIPTION")
		fmt.Fprintln(w, "-\t-----\t------\t-----------")
		for i, s := range p.Stages() {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i+1, labelName(s.Label), s.Target, s.Description)
		}
		fmt.Fprintf(w, "\t\t%d\ttotal\n", p.TotalTarget())
		return w.Flush()
	},
}

func init() {
	protocolCmd.Flags().StringVar(&protocolFile, "protocol", "", "JSON protocol file (default: built-in protocol)")
	protocolCmd.Flags().BoolVar(&protocolJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(protocolCmd)
}

var protocolFile string

// loadProtocol returns the protocol from --protocol, WAKEGUARD_PROTOCOL_FILE
// or the built-in default, in that order.
func loadProtocol() (*protocol.Protocol, error) {
	path := cfg.ProtocolFile
	if protocolFile != "" {
		path = protocolFile
	}
	if path == "" {
		return protocol.Default(), nil
	}
	p, err := protocol.Load(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func labelName(label int) string {
	switch label {
	case protocol.LabelAlert:
		return "alert"
	case protocol.LabelDrowsy:
		return "drowsy"
	default:
		return fmt.Sprint(label)
	}
}
