package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/utils/functional"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers and models; unconfigured providers have no API key on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.close()

		list, err := ws.providers(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tCONFIGURED\tMODELS")
		for _, p := range list.Data {
			models := functional.Map(p.Models, func(m provider.Model) string { return m.Key })
			fmt.Fprintf(w, "%s\t%t\t%s\n", p.Key, p.Configured, strings.Join(models, ", "))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default: %s/%s\n", list.DefaultProvider, list.DefaultModel)
		return nil
	},
}
