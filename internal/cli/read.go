package cli

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ambiyansyah-risyal/frappekit"
)

// GetCommand fetches documents by name.
type GetCommand struct {
	*Command

	flagConcurrency int
}

func (c *GetCommand) Synopsis() string {
	return "Fetch one or more documents"
}

func (c *GetCommand) Help() string {
	return `Usage: frappekit get [options] <doctype> <name> [<name>...]

  Fetches each named document and prints it as JSON. Several names are
  fetched concurrently and printed as an array in argument order.` +
		c.Flags().Help()
}

func (c *GetCommand) Flags() *FlagSet {
	f := NewFlagSet("get")
	c.addConnectionFlags(f)
	f.IntVar(&c.flagConcurrency, "concurrency", 4,
		"Maximum number of documents fetched at once.")
	return f
}

func (c *GetCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	args = flags.Args()
	if len(args) < 2 {
		c.UI.Error("a doctype and at least one document name are required")
		return 1
	}
	if c.flagConcurrency < 1 {
		c.UI.Error("concurrency must be at least 1")
		return 1
	}

	ctx, cancel := c.context()
	defer cancel()

	s, err := c.connect(ctx, nil)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	doctype, names := args[0], args[1:]
	docs := make([]frappekit.Document, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.flagConcurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			doc, err := frappekit.GetDoc[frappekit.Document](s.qc, doctype, name).Fetch(gctx)
			if err != nil {
				return fmt.Errorf("%s %s: %w", doctype, name, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return c.fail("fetching documents", err)
	}

	if len(docs) == 1 {
		return c.output(docs[0])
	}
	return c.output(docs)
}

// ListCommand lists documents of a doctype.
type ListCommand struct {
	*Command

	flagFields    []string
	flagFilters   string
	flagOrFilters string
	flagLimit     int
	flagStart     int
	flagOrder     string
}

func (c *ListCommand) Synopsis() string {
	return "List documents of a doctype"
}

func (c *ListCommand) Help() string {
	return `Usage: frappekit list [options] <doctype>

  Lists documents and prints them as a JSON array. Filters are JSON arrays
  of [field, operator, value] triples, for example:

      frappekit list ToDo --filters '[["status","=","Open"]]' --order "modified desc"` +
		c.Flags().Help()
}

func (c *ListCommand) Flags() *FlagSet {
	f := NewFlagSet("list")
	c.addConnectionFlags(f)
	f.StringSliceVarP(&c.flagFields, "fields", "f", nil,
		"Fields to return. Defaults to the name only.")
	f.StringVar(&c.flagFilters, "filters", "",
		"Filters, all of which must match.")
	f.StringVar(&c.flagOrFilters, "or-filters", "",
		"Filters, any of which must match.")
	f.IntVarP(&c.flagLimit, "limit", "n", frappekit.DefaultListLimit,
		"Page size.")
	f.IntVar(&c.flagStart, "start", 0,
		"Offset of the first document.")
	f.StringVar(&c.flagOrder, "order", "",
		`Sort order as "field [asc|desc]".`)
	return f
}

func (c *ListCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	args = flags.Args()
	if len(args) != 1 {
		c.UI.Error("exactly one doctype is required")
		return 1
	}

	listArgs, err := c.listArgs()
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

	docs, err := frappekit.GetList[frappekit.Document](s.qc, args[0], listArgs).Fetch(ctx)
	if err != nil {
		return c.fail("listing documents", err)
	}
	if docs == nil {
		docs = []frappekit.Document{}
	}
	return c.output(docs)
}

func (c *ListCommand) listArgs() (frappekit.ListArgs, error) {
	var args frappekit.ListArgs

	filters, err := parseFilters(c.flagFilters)
	if err != nil {
		return args, err
	}
	orFilters, err := parseFilters(c.flagOrFilters)
	if err != nil {
		return args, err
	}
	order, err := parseOrder(c.flagOrder)
	if err != nil {
		return args, err
	}
	if c.flagLimit < 0 || c.flagStart < 0 {
		return args, fmt.Errorf("limit and start must not be negative")
	}

	args.Fields = c.flagFields
	args.Filters = filters
	args.OrFilters = orFilters
	args.OrderBy = order
	args.Limit = frappekit.Int(c.flagLimit)
	if c.flagStart > 0 {
		args.LimitStart = frappekit.Int(c.flagStart)
	}
	return args, nil
}

// CountCommand counts documents of a doctype.
type CountCommand struct {
	*Command

	flagFilters string
}

func (c *CountCommand) Synopsis() string {
	return "Count documents of a doctype"
}

func (c *CountCommand) Help() string {
	return `Usage: frappekit count [options] <doctype>

  Prints the number of documents matching the filters.` +
		c.Flags().Help()
}

func (c *CountCommand) Flags() *FlagSet {
	f := NewFlagSet("count")
	c.addConnectionFlags(f)
	f.StringVar(&c.flagFilters, "filters", "",
		"Filters as a JSON array of [field, operator, value].")
	return f
}

func (c *CountCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	args = flags.Args()
	if len(args) != 1 {
		c.UI.Error("exactly one doctype is required")
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

	n, err := frappekit.GetCount(s.qc, args[0], filters).Fetch(ctx)
	if err != nil {
		return c.fail("counting documents", err)
	}
	c.UI.Output(fmt.Sprint(n))
	return 0
}

// CallCommand invokes a whitelisted server method.
type CallCommand struct {
	*Command

	flagMethod string
}

func (c *CallCommand) Synopsis() string {
	return "Call a server method"
}

func (c *CallCommand) Help() string {
	return `Usage: frappekit call [options] <method> [key=value...]

  Calls /api/method/<method> and prints the unwrapped result. GET calls
  send the arguments as query parameters, other methods as a JSON body.` +
		c.Flags().Help()
}

func (c *CallCommand) Flags() *FlagSet {
	f := NewFlagSet("call")
	c.addConnectionFlags(f)
	f.StringVarP(&c.flagMethod, "method", "X", "GET",
		"HTTP method: GET, POST, PUT or DELETE.")
	return f
}

func (c *CallCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	args = flags.Args()
	if len(args) < 1 {
		c.UI.Error("a method name is required")
		return 1
	}
	params, err := parseParams(args[1:])
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	endpoint := args[0]
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/api/method/" + endpoint
	}

	ctx, cancel := c.context()
	defer cancel()

	s, err := c.connect(ctx, nil)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	var result any
	switch strings.ToUpper(c.flagMethod) {
	case "GET":
		result, err = frappekit.GetCall[any](s.qc, endpoint, params).Fetch(ctx)
	case "POST":
		result, err = frappekit.PostCall[any](s.client, endpoint).Run(ctx, params)
	case "PUT":
		result, err = frappekit.PutCall[any](s.client, endpoint).Run(ctx, params)
	case "DELETE":
		result, err = frappekit.DeleteCall[any](s.client, endpoint).Run(ctx, params)
	default:
		c.UI.Error(fmt.Sprintf("unsupported method %q", c.flagMethod))
		return 1
	}
	if err != nil {
		return c.fail("calling "+endpoint, err)
	}
	return c.output(result)
}
