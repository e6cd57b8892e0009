package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/folio/docs"
	"github.com/google/subcommands"
)

// topicCmd prints pages of the embedded folio manual.
type topicCmd struct {
	list bool
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "read the folio manual" }
func (*topicCmd) Usage() string {
	return fmt.Sprintf(`pf topic [-l] [<topic>...]

  Prints the manual pages about ledgers, valuation, DCA strategies and
  analytics. Without a topic it prints the index, '*' prints every page.

  Topics: %s
`, strings.Join(docs.All(), ", "))
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "l", false, "List the topic names only")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list {
		for _, name := range docs.All() {
			fmt.Fprintln(stdout, name)
		}
		return subcommands.ExitSuccess
	}
	pages := f.Args()
	if len(pages) == 0 {
		pages = []string{docs.Index}
	}
	manual, err := docs.Topics(pages...)
	if err != nil {
		return fail(err)
	}
	printMarkdown(manual)
	return subcommands.ExitSuccess
}
