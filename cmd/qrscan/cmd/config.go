package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrscan/internal/config"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
	}

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write the default configuration to a file",
		Long: `Write the default configuration as YAML. Without a file argument
qrscan.yaml is created in the current directory.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			force, _ := cmd.Flags().GetBool("force")
			written, err := config.GenerateDefaultConfigFile(a.fs, file, force)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", written)
			return err
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:          "show",
		Short:        "Print the effective configuration",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.MarshalYAML(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	pathsCmd := &cobra.Command{
		Use:   "paths",
		Short: "List the directories searched for " + config.DefaultConfigFile,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.GetConfigSearchPaths(), "\n"))
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd, pathsCmd)
	return cmd
}
