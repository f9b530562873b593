package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"jan-server/services/chat-api/internal/domain/conversationlist"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your conversations, most recently updated first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.close()

		list := conversationlist.NewController(ws.backend, nil, ws.log)
		entries, err := list.List(cmd.Context(), ws.userID)
		if err != nil {
			return err
		}
		printEntries(cmd.OutOrStdout(), entries, "")
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <conversation id> <title>",
	Short: "Rename a conversation; renamed titles are never replaced by generated ones",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.close()

		list := conversationlist.NewController(ws.backend, nil, ws.log)
		if err := list.Rename(cmd.Context(), ws.userID, args[0], strings.Join(args[1:], " ")); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s\n", args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <conversation id>",
	Short: "Delete a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.close()

		list := conversationlist.NewController(ws.backend, nil, ws.log)
		if _, err := list.Delete(cmd.Context(), ws.userID, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func printEntries(out io.Writer, entries []conversationlist.Entry, active string) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No conversations yet.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tTITLE\tMODEL\tUPDATED")
	for _, entry := range entries {
		marker := ""
		if entry.ID == active {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s/%s\t%s\n",
			marker, entry.ID, entry.Title, entry.Provider, entry.Model, entry.UpdatedAt.Local().Format(time.DateTime))
	}
	_ = w.Flush()
}
