package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/pflag"

	"github.com/ambiyansyah-risyal/frappekit"
)

// FlagSet is a pflag set that renders its own help section.
type FlagSet struct {
	*pflag.FlagSet
}

// NewFlagSet returns an empty FlagSet that reports parse errors instead of
// exiting.
func NewFlagSet(name string) *FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = true
	return &FlagSet{FlagSet: fs}
}

// Help renders the flag usages for a command's Help text.
func (f *FlagSet) Help() string {
	usages := f.FlagUsages()
	if usages == "" {
		return ""
	}
	return "\n\nOptions:\n\n" + usages
}

// Command holds what every command shares: the logger, the UI and the
// connection flags.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui

	flagConfig   string
	flagURL      string
	flagLogLevel string
}

// addConnectionFlags registers --config, --url and --log-level.
func (c *Command) addConnectionFlags(f *FlagSet) {
	f.StringVarP(&c.flagConfig, "config", "c", os.Getenv("FRAPPE_CONFIG"),
		"Path to a YAML config file. Defaults to $FRAPPE_CONFIG.")
	f.StringVar(&c.flagURL, "url", "",
		"Backend address. Overrides base_url and $FRAPPE_URL.")
	f.StringVar(&c.flagLogLevel, "log-level", "",
		"Log level (trace, debug, info, warn, error). Overrides log_level.")
}

// session is a configured client pair.
type session struct {
	cfg     frappekit.Config
	client  *frappekit.Client
	qc      *frappekit.QueryClient
	metrics *frappekit.MetricsCollector
}

// config resolves the configuration and applies the connection flags.
func (c *Command) config() (frappekit.Config, error) {
	cfg, err := frappekit.LoadConfig(c.flagConfig)
	if err != nil && c.flagURL == "" {
		return cfg, err
	}
	if c.flagURL != "" {
		cfg.BaseURL = c.flagURL
	}
	if c.flagLogLevel != "" {
		cfg.LogLevel = c.flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	c.Log.SetLevel(hclog.LevelFromString(cfg.LogLevel))
	return cfg, nil
}

// connect builds the clients. When a username is configured without an API
// key the session is started with a password login first.
func (c *Command) connect(ctx context.Context, metrics *frappekit.MetricsCollector) (*session, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	client, qc, err := frappekit.NewFromConfig(cfg, c.Log, metrics)
	if err != nil {
		return nil, fmt.Errorf("error creating client: %w", err)
	}
	s := &session{cfg: cfg, client: client, qc: qc, metrics: metrics}

	if cfg.Username != "" && cfg.APIKey == "" {
		auth := frappekit.NewAuth(qc, nil, frappekit.WithAuthLogger(c.Log), frappekit.WithAuthMetrics(metrics))
		res, err := auth.Login(ctx, cfg.Username, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("error logging in as %s: %w", cfg.Username, err)
		}
		c.Log.Debug("logged in", "user", cfg.Username, "full_name", res.FullName)
	}
	return s, nil
}

// context returns a context cancelled on SIGINT or SIGTERM.
func (c *Command) context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// output writes v as indented JSON.
func (c *Command) output(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		c.UI.Error(fmt.Sprintf("error encoding output: %v", err))
		return 1
	}
	c.UI.Output(string(data))
	return 0
}

// fail reports err with its request details when it is a client error.
func (c *Command) fail(action string, err error) int {
	c.UI.Error(fmt.Sprintf("error %s: %v", action, err))
	var ce *frappekit.ClientError
	if errors.As(err, &ce) && ce.RequestID != "" {
		c.Log.Debug("request failed", "debug", ce.DebugInfo())
	}
	return 1
}

// parseFilters reads a JSON array of [field, operator, value] triples.
func parseFilters(s string) ([]frappekit.Filter, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var filters []frappekit.Filter
	if err := json.Unmarshal([]byte(s), &filters); err != nil {
		return nil, fmt.Errorf("filters must be a JSON array of [field, operator, value]: %w", err)
	}
	return filters, nil
}

// parseOrder reads "field" or "field asc|desc".
func parseOrder(s string) (*frappekit.OrderBy, error) {
	parts := strings.Fields(s)
	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return &frappekit.OrderBy{Field: parts[0], Order: frappekit.Asc}, nil
	case 2:
		order := frappekit.SortOrder(strings.ToLower(parts[1]))
		if order != frappekit.Asc && order != frappekit.Desc {
			return nil, fmt.Errorf("unknown sort order %q", parts[1])
		}
		return &frappekit.OrderBy{Field: parts[0], Order: order}, nil
	default:
		return nil, fmt.Errorf("order must be \"field [asc|desc]\", got %q", s)
	}
}

// parseParams reads key=value arguments.
func parseParams(args []string) (frappekit.Params, error) {
	params := frappekit.Params{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", arg)
		}
		params[k] = v
	}
	return params, nil
}
