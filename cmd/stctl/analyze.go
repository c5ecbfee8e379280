package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stplatform/stcore/bytecode"
	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/semdb"
	"github.com/stplatform/stcore/symbols"
	"github.com/stplatform/stcore/types"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <container>",
		Short: "Run the semantic database's diagnostic passes against a container's task metadata",
		Long: "Analyze decodes a bytecode container's STRING_TABLE and RESOURCE_META sections into a " +
			"task configuration, registers it as a semantic-database unit, and reports every diagnostic " +
			"the analyze query finds (§4.D). The container carries no program bodies to check (the " +
			"source-to-IR compiler is out of scope, as in stctl run), so this command exercises the " +
			"task-level passes — shared-global hazards chief among them — against the task/global shape " +
			"the container actually declares.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(args[0])
		},
	}
	return cmd
}

func runAnalyze(path string) error {
	c, err := bytecode.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()

	strSection, ok := c.Section(bytecode.SectionStringTable)
	if !ok {
		return errs.New(errs.KindInvalidBytecodeMetadata, "missing STRING_TABLE section")
	}
	strings_, err := bytecode.DecodeStringTable(strSection.Payload)
	if err != nil {
		return err
	}

	resSection, ok := c.Section(bytecode.SectionResourceMeta)
	if !ok {
		return errs.New(errs.KindInvalidBytecodeMetadata, "missing RESOURCE_META section")
	}
	resources, err := bytecode.DecodeResourceMeta(resSection.Payload)
	if err != nil {
		return err
	}

	reg := types.New()
	tbl := symbols.NewTable(reg)
	prog := &ir.Program{}

	for _, res := range resources {
		tasks := make([]ir.TaskConfig, len(res.Tasks))
		for i, t := range res.Tasks {
			cfg := ir.TaskConfig{
				Name:     strings_[t.NameIdx],
				Priority: int(t.Priority),
			}
			if t.SingleIdx != bytecode.NoSingle {
				cfg.SingleTrigger = strings_[t.SingleIdx]
				name := cfg.SingleTrigger
				if _, lookupErr := tbl.Lookup(name, 0); lookupErr != nil {
					tbl.Declare(0, &symbols.Symbol{
						SimpleName: name, Kind: symbols.KindVariable, DeclaredType: types.IDBool,
					})
					prog.Globals = append(prog.Globals, ir.GlobalInit{Name: name, Type: types.IDBool})
				}
			}
			tasks[i] = cfg
		}
		prog.Tasks = append(prog.Tasks, tasks...)
	}

	backend := semdb.NewUnitBackend()
	db := semdb.New(backend)

	const fileID semdb.FileID = 1
	backend.RegisterUnit(fileID, semdb.NewUnit(tbl, prog))
	db.SetSourceText(fileID, path)

	a, err := db.Analyze(fileID)
	if err != nil {
		return err
	}
	if len(a.Diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	fmt.Println(prettyPrint(a.Diagnostics))
	return nil
}
