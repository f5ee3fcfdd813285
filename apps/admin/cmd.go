package main

import (
	"database/sql"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/trezcool/masomo-reports/core"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf   *core.Config
	out    io.Writer
	openDB func() (*sql.DB, error)
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Masomo reports administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(cli.exportCmd(), cli.migrateCmd(), cli.tokenCmd())
	return root
}

// run executes the command line `args`, program name included.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}
