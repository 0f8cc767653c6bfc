package cli

import (
	"fmt"

	"github.com/ambiyansyah-risyal/frappekit"
)

// SearchCommand runs a contains search over a doctype.
type SearchCommand struct {
	*Command

	flagField   string
	flagFields  []string
	flagFilters string
	flagLimit   int
}

func (c *SearchCommand) Synopsis() string {
	return "Search documents by a field"
}

func (c *SearchCommand) Help() string {
	return `Usage: frappekit search [options] <doctype> <text>

  Lists documents whose search field contains text. Blank text matches
  nothing and sends no request.` +
		c.Flags().Help()
}

func (c *SearchCommand) Flags() *FlagSet {
	f := NewFlagSet("search")
	c.addConnectionFlags(f)
	f.StringVar(&c.flagField, "field", frappekit.DefaultSearchField,
		"Field matched against the text.")
	f.StringSliceVarP(&c.flagFields, "fields", "f", nil,
		"Fields to return.")
	f.StringVar(&c.flagFilters, "filters", "",
		"Additional filters as a JSON array of [field, operator, value].")
	f.IntVarP(&c.flagLimit, "limit", "n", frappekit.DefaultListLimit,
		"Maximum number of results.")
	return f
}

func (c *SearchCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	args = flags.Args()
	if len(args) != 2 {
		c.UI.Error("a doctype and the search text are required")
		return 1
	}
	filters, err := parseFilters(c.flagFilters)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx, cancel := c.context()
	defer cancel()

	s, err := c.connect(ctx, nil)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	search := frappekit.NewSearch[frappekit.Document](s.qc, args[0], args[1], frappekit.SearchOptions{
		ListArgs: frappekit.ListArgs{
			Fields:  c.flagFields,
			Filters: filters,
			Limit:   frappekit.Int(c.flagLimit),
		},
		Field: c.flagField,
	})
	defer search.Close()

	search.Observe(ctx)
	st, err := search.Wait(ctx)
	if err != nil {
		return c.fail("searching", err)
	}
	if st.Err != nil {
		return c.fail("searching", st.Err)
	}

	docs := st.Data
	if docs == nil {
		docs = []frappekit.Document{}
	}
	return c.output(docs)
}
