package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/blueprintdocs/cmd/blueprintdocs/commands"
	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli commands.CLI
	global := &commands.Global{Ctx: ctx, Stdout: os.Stdout}
	parser := kong.Parse(&cli,
		kong.Name("blueprintdocs"),
		kong.Description("Build, render and publish blueprint plugin documentation."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	err := parser.Run(&cli)
	stop()
	errors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
}
