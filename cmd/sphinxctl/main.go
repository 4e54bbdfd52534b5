package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sphinxctl/cmd/sphinxctl/commands"
	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
	"git.home.luguber.info/inful/sphinxctl/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("sphinxctl"),
		kong.Description("Build host for Sphinx documentation projects."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)

	err := parser.Run(commands.NewGlobal(), cli)
	berrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
