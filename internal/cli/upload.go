package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ambiyansyah-risyal/frappekit"
)

// UploadCommand uploads a file.
type UploadCommand struct {
	*Command

	flagPrivate   bool
	flagFolder    string
	flagDoctype   string
	flagDocname   string
	flagFieldname string
	flagQuiet     bool
}

func (c *UploadCommand) Synopsis() string {
	return "Upload a file"
}

func (c *UploadCommand) Help() string {
	return `Usage: frappekit upload [options] <path>

  Uploads a file, optionally attaching it to a document, and prints the
  created File record.` +
		c.Flags().Help()
}

func (c *UploadCommand) Flags() *FlagSet {
	f := NewFlagSet("upload")
	c.addConnectionFlags(f)
	f.BoolVar(&c.flagPrivate, "private", false,
		"Store the file as private.")
	f.StringVar(&c.flagFolder, "folder", "",
		"Folder to file the upload under.")
	f.StringVar(&c.flagDoctype, "doctype", "",
		"Doctype of the document to attach to.")
	f.StringVar(&c.flagDocname, "docname", "",
		"Name of the document to attach to.")
	f.StringVar(&c.flagFieldname, "fieldname", "",
		"Attach field of the document.")
	f.BoolVarP(&c.flagQuiet, "quiet", "q", false,
		"Do not report progress.")
	return f
}

func (c *UploadCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	args = flags.Args()
	if len(args) != 1 {
		c.UI.Error("exactly one file path is required")
		return 1
	}
	if (c.flagDoctype == "") != (c.flagDocname == "") {
		c.UI.Error("doctype and docname must be given together")
		return 1
	}

	f, err := os.Open(args[0])
	if err != nil {
		c.UI.Error(fmt.Sprintf("error opening file: %v", err))
		return 1
	}
	defer f.Close()

	ctx, cancel := c.context()
	defer cancel()

	s, err := c.connect(ctx, nil)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	upload := frappekit.NewFileUpload(s.client)
	last := -1
	var progress frappekit.ProgressFunc
	if !c.flagQuiet {
		progress = func(transferred, total int64) {
			if pct := upload.Progress(); pct != last && pct%10 == 0 {
				last = pct
				c.UI.Info(fmt.Sprintf("uploaded %d%% (%d of %d bytes)", pct, transferred, total))
			}
		}
	}

	res, err := upload.Upload(ctx, frappekit.File{
		Name:    filepath.Base(args[0]),
		Content: f,
	}, frappekit.UploadArgs{
		IsPrivate: c.flagPrivate,
		Folder:    c.flagFolder,
		Doctype:   c.flagDoctype,
		Docname:   c.flagDocname,
		Fieldname: c.flagFieldname,
	}, progress)
	if err != nil {
		return c.fail("uploading "+args[0], err)
	}
	return c.output(res)
}
