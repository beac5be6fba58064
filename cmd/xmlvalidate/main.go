package main

import (
	"context"

	"github.com/scott-cotton/cli"
)

func main() {
	cli.MainContext(context.Background(), Root())
}

// Root returns the xmlvalidate command.
func Root() *cli.Command {
	return cli.NewCommand("xmlvalidate").
		WithSynopsis("xmlvalidate command [opts] [args]").
		WithDescription("xmlvalidate checks XML documents against an XML Schema.").
		WithSubs(
			ValidateCommand(),
			SchemaCommand(),
		)
}
