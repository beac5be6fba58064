package main

import (
	"fmt"
	"io"

	"github.com/agentflare-ai/go-xmlvalidator/xsd"
	"github.com/scott-cotton/cli"
)

type schemaConfig struct {
	*cli.Command
}

// SchemaCommand returns the schema subcommand.
func SchemaCommand() *cli.Command {
	cfg := &schemaConfig{}
	return cli.NewCommandAt(&cfg.Command, "schema").
		WithAliases("s").
		WithSynopsis("schema file.xsd").
		WithDescription("compile a schema, following imports and includes, and list its global components").
		WithRun(cfg.run)
}

func (cfg *schemaConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: schema requires one schema file", cli.ErrUsage)
	}
	s, err := xsd.LoadSchemaWithImports(args[0])
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", args[0], err)
	}
	return writeSummary(cc.Out, args[0], s.Summarize())
}

func writeSummary(w io.Writer, path string, sum xsd.Summary) error {
	tns := sum.TargetNamespace
	if tns == "" {
		tns = "(none)"
	}
	if _, err := fmt.Fprintf(w, "%s compiled\ntarget namespace: %s\n", path, tns); err != nil {
		return err
	}
	sections := []struct {
		title string
		names []string
	}{
		{"elements", sum.Elements},
		{"types", sum.Types},
		{"groups", sum.Groups},
		{"attribute groups", sum.AttributeGroups},
		{"imports", sum.Imports},
	}
	for _, s := range sections {
		if _, err := fmt.Fprintf(w, "%s (%d):\n", s.title, len(s.names)); err != nil {
			return err
		}
		for _, n := range s.names {
			if _, err := fmt.Fprintf(w, "  %s\n", n); err != nil {
				return err
			}
		}
	}
	return nil
}
