package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stplatform/stcore/bytecode"
)

func prettyPrint(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<marshal error: %s>", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "\t"); err != nil {
		return string(raw)
	}
	return buf.String()
}

type dumpFlags struct {
	header   bool
	strings  bool
	pouIndex bool
	resource bool
	all      bool
}

func newDumpCmd() *cobra.Command {
	var f dumpFlags
	cmd := &cobra.Command{
		Use:   "dump <container>",
		Short: "Dump a bytecode container's header and sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args[0], f)
		},
	}
	cmd.Flags().BoolVar(&f.header, "header", false, "dump the container header and section table")
	cmd.Flags().BoolVar(&f.strings, "strings", false, "dump the STRING_TABLE section")
	cmd.Flags().BoolVar(&f.pouIndex, "pou-index", false, "dump the POU_INDEX section")
	cmd.Flags().BoolVar(&f.resource, "resource", false, "dump the RESOURCE_META section")
	cmd.Flags().BoolVar(&f.all, "all", false, "dump every section")
	return cmd
}

func runDump(path string, f dumpFlags) error {
	c, err := bytecode.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()

	if f.header || f.all || noneSet(f) {
		fmt.Println(prettyPrint(c.Header))
		for id, s := range c.Sections {
			fmt.Printf("section %s: offset=%d length=%d checksum=0x%08x\n", id, s.Offset, s.Length, s.Checksum)
		}
	}

	if f.strings || f.all {
		if s, ok := c.Section(bytecode.SectionStringTable); ok {
			table, err := bytecode.DecodeStringTable(s.Payload)
			if err != nil {
				return err
			}
			fmt.Println(prettyPrint(table))
		}
	}

	if f.pouIndex || f.all {
		if s, ok := c.Section(bytecode.SectionPOUIndex); ok {
			entries, err := bytecode.DecodePOUIndex(s.Payload)
			if err != nil {
				return err
			}
			fmt.Println(prettyPrint(entries))
		}
	}

	if f.resource || f.all {
		if s, ok := c.Section(bytecode.SectionResourceMeta); ok {
			entries, err := bytecode.DecodeResourceMeta(s.Payload)
			if err != nil {
				return err
			}
			fmt.Println(prettyPrint(entries))
		}
	}

	return nil
}

func noneSet(f dumpFlags) bool {
	return !f.strings && !f.pouIndex && !f.resource && !f.all
}
