package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/voicemagic/internal/voice"
)

func newVoicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the available voices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVoices(cmd.OutOrStdout(), voice.Default())
		},
	}
}

func printVoices(w io.Writer, voices *voice.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVOICE ID\tLOCALE\tGENDER\t")
	for _, v := range voices.List() {
		name := v.Name
		if v.Name == voice.DefaultName {
			name += " (default)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", name, v.ID, v.Locale, v.Gender)
	}
	return tw.Flush()
}
