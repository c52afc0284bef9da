package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/renderkit/cmd/renderkit/commands"
)

var version = "dev"

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("renderkit"),
		kong.Description("Incremental document project renderer."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)
	err := ctx.Run(&commands.Global{}, &cli)
	ctx.FatalIfErrorf(err)
}
