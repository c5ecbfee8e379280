package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stplatform/stcore/retain"
)

func newRetainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retain",
		Short: "Inspect a resource's retain file",
	}
	cmd.AddCommand(newRetainDumpCmd())
	cmd.AddCommand(newRetainClearCmd())
	return cmd
}

func newRetainDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <path>",
		Short: "Print every entry in a retain file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := retain.NewFile(args[0])
			entries, ok, err := f.Load()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("%s: no retain snapshot present\n", args[0])
				return nil
			}
			fmt.Println(prettyPrint(entries))
			return nil
		},
	}
}

func newRetainClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <path>",
		Short: "Replace a retain file with an empty snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := retain.NewFile(args[0])
			return f.Save(nil)
		},
	}
}
