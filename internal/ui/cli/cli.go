package cli

import (
	"flag"
	"strings"
)

type cliOptions struct {
	configPath string
	ui         bool

	repo    string
	path    string
	file    string
	sha     string
	compare string
	tree    bool

	links string
	crawl string
	depth int
	pages int

	items       string
	itemID      string
	itemName    string
	itemType    string
	itemCode    string
	itemTags    string
	itemNotes   string
	itemAutorun bool
	input       string
	output      string
	replace     bool

	filters stringList
	format  string
	theme   string
	verbose bool
	version bool
	args    []string
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ", ") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func parseOptions(args []string) (cliOptions, error) {
	opts := cliOptions{depth: -1}
	fs := flag.NewFlagSet("benchtop", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file (default $XDG_CONFIG_HOME/benchtop/benchtop.toml)")
	fs.BoolVar(&opts.ui, "ui", false, "Start the terminal UI")

	fs.StringVar(&opts.repo, "repo", "", "Browse a GitHub repository (owner/name or URL)")
	fs.StringVar(&opts.path, "path", "", "Directory to list inside --repo")
	fs.StringVar(&opts.file, "file", "", "File inside --repo to show with its commit history")
	fs.StringVar(&opts.sha, "sha", "", "Commit to pin --file to (default newest)")
	fs.StringVar(&opts.compare, "compare", "", "Diff --file between two commits (<a>:<b>)")
	fs.BoolVar(&opts.tree, "tree", false, "Print the full file tree of --repo")

	fs.StringVar(&opts.links, "links", "", "Print the link tree of a page")
	fs.StringVar(&opts.crawl, "crawl", "", "Crawl a documentation site from this URL")
	fs.IntVar(&opts.depth, "depth", -1, "Override crawler.max_depth for --crawl")
	fs.IntVar(&opts.pages, "max-pages", 0, "Override crawler.max_pages for --crawl")

	fs.StringVar(&opts.items, "items", "", "Item store command: list|add|update|delete|export|import|backup|restore")
	fs.StringVar(&opts.itemID, "item-id", "", "Item id for update/delete")
	fs.StringVar(&opts.itemName, "item-name", "", "Item name")
	fs.StringVar(&opts.itemType, "item-type", "", "Item type")
	fs.StringVar(&opts.itemCode, "item-code", "", "Item code body")
	fs.StringVar(&opts.itemTags, "item-tags", "", "Comma separated item tags")
	fs.StringVar(&opts.itemNotes, "item-notes", "", "Item notes")
	fs.BoolVar(&opts.itemAutorun, "item-autorun", false, "Mark the item to run on startup")
	fs.StringVar(&opts.input, "in", "", "Input file for import/restore (default stdin for import)")
	fs.StringVar(&opts.output, "out", "", "Output file for export/backup (default stdout for export)")
	fs.BoolVar(&opts.replace, "replace", false, "Import replaces every stored item")

	fs.Var(&opts.filters, "filter", "Filter as field:kind:op:value (repeatable)")
	fs.StringVar(&opts.format, "format", "text", "Output format: text|json|yaml")
	fs.StringVar(&opts.theme, "theme", "", "Select and persist a theme, then exit unless --ui")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
