package cli

import (
	"fmt"

	"github.com/ambiyansyah-risyal/frappekit"
)

// WhoamiCommand prints the identity of the configured session.
type WhoamiCommand struct {
	*Command

	flagLogout bool
}

func (c *WhoamiCommand) Synopsis() string {
	return "Print the logged in user"
}

func (c *WhoamiCommand) Help() string {
	return `Usage: frappekit whoami [options]

  Resolves the session of the configured credentials and prints the user
  name. With FRAPPE_USERNAME and FRAPPE_PASSWORD set a password login is
  made first; with FRAPPE_API_KEY and FRAPPE_API_SECRET the key is used.
  Exits 2 when the session is anonymous.` +
		c.Flags().Help()
}

func (c *WhoamiCommand) Flags() *FlagSet {
	f := NewFlagSet("whoami")
	c.addConnectionFlags(f)
	f.BoolVar(&c.flagLogout, "logout", false,
		"End the session after printing it.")
	return f
}

func (c *WhoamiCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if len(flags.Args()) != 0 {
		c.UI.Error("whoami takes no arguments")
		return 1
	}

	ctx, cancel := c.context()
	defer cancel()

	s, err := c.connect(ctx, nil)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	auth := frappekit.NewAuth(s.qc, nil, frappekit.WithAuthLogger(c.Log))
	auth.Observe(ctx)
	st, err := auth.Wait(ctx)
	if err != nil {
		return c.fail("resolving session", err)
	}
	if st.Err != nil {
		return c.fail("resolving session", st.Err)
	}

	code := 0
	switch st.State {
	case frappekit.SessionAuthenticated:
		c.UI.Output(st.CurrentUser)
	default:
		c.UI.Warn(frappekit.GuestUser)
		code = 2
	}

	if c.flagLogout {
		auth.Logout(ctx)
		c.Log.Debug("logged out", "state", auth.Status().State)
	}
	return code
}
