// Command pf manages investment portfolios: transactions, valuation, DCA
// strategies and stock analytics.
//
// Shell completion is installed with `COMP_INSTALL=1 pf`.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/folio/cmd"
	"github.com/etnz/folio/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	completion().Complete("pf")

	flag.Parse()
	if name := flag.Arg(0); name != "" && !registered(commander, name) {
		if found, code := cmd.RunExtension(name, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}

func registered(commander *subcommands.Commander, name string) (found bool) {
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		found = found || c.Name() == name
	})
	return found
}

// completion describes the pf command line for shell completion.
func completion() *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flags(flag.CommandLine),
	}
	for _, name := range []string{"help", "flags", "commands"} {
		root.Sub[name] = &complete.Command{}
	}
	for _, g := range cmd.Groups {
		for _, c := range g.Commands {
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(fs)
			sub := &complete.Command{Flags: flags(fs)}
			switch c.Name() {
			case "import":
				sub.Args = predict.Files("*.csv")
			case "topic":
				sub.Args = predict.Set(docs.All())
			case "chart":
				sub.Flags["o"] = predict.Files("*.png")
			}
			root.Sub[c.Name()] = sub
		}
	}
	return root
}

func flags(fs *flag.FlagSet) map[string]complete.Predictor {
	predictors := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			predictors[f.Name] = predict.Files("*.db")
		case "market":
			predictors[f.Name] = predict.Files("*.jsonl")
		case "o":
			predictors[f.Name] = predict.Files("*.csv")
		default:
			if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
				predictors[f.Name] = predict.Nothing
			} else {
				predictors[f.Name] = predict.Something
			}
		}
	})
	return predictors
}
