package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stplatform/stcore/bytecode"
)

func newValidateCmd() *cobra.Command {
	var minVersion string
	cmd := &cobra.Command{
		Use:   "validate <container>",
		Short: "Validate a bytecode container's opcodes and debug map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0], minVersion)
		},
	}
	cmd.Flags().StringVar(&minVersion, "min-runtime-version", "", "reject the container if its version predates this one (semver)")
	return cmd
}

func runValidate(path, minVersion string) error {
	c, err := bytecode.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := bytecode.Validate(c); err != nil {
		return err
	}

	if minVersion != "" && !bytecode.CompatibleVersion(c.Header, minVersion) {
		return fmt.Errorf("container version %s is older than the required minimum %s", c.Header.Version(), minVersion)
	}

	fmt.Printf("%s: ok (version %s, %d sections)\n", path, c.Header.Version(), len(c.Sections))
	return nil
}
