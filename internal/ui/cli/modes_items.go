package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	coreapp "benchtop/internal/core/app"
	"benchtop/internal/core/errors"
	"benchtop/internal/data/items"
	"benchtop/internal/engine/filter"

	"github.com/dustin/go-humanize"
)

var itemCommands = map[string]bool{
	"list":    true,
	"add":     true,
	"update":  true,
	"delete":  true,
	"export":  true,
	"import":  true,
	"backup":  true,
	"restore": true,
}

func runItemsMode(ctx context.Context, stdin io.Reader, w io.Writer, a *coreapp.App, opts cliOptions, set *filter.Set) error {
	store, err := a.Store()
	if err != nil {
		return err
	}

	switch opts.items {
	case "list":
		all, err := store.List(ctx)
		if err != nil {
			return err
		}
		res := filter.Apply(set, all)
		if opts.format != formatText {
			return encode(w, opts.format, res.Items)
		}
		for _, it := range res.Items {
			autorun := ""
			if it.Autorun {
				autorun = " [autorun]"
			}
			fmt.Fprintf(w, "%s  %-24s %-10s %s%s  (%s)\n",
				shortRef(it.ID), it.Name, it.Type, strings.Join(it.Tags, ","), autorun, humanize.Time(it.UpdatedAt))
		}
		fmt.Fprintf(w, "%d of %d items\n", res.Count, res.Total)
		return nil

	case "add":
		created, err := store.Create(ctx, itemFromOptions(opts))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, created.ID)
		return nil

	case "update":
		current, err := store.Get(ctx, opts.itemID)
		if err != nil {
			return err
		}
		updated, err := store.Update(ctx, patchItem(current, opts))
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "updated %s\n", updated.ID)
		return nil

	case "delete":
		if err := store.Delete(ctx, opts.itemID); err != nil {
			return err
		}
		fmt.Fprintf(w, "deleted %s\n", opts.itemID)
		return nil

	case "export":
		format, err := transferFormat(opts.format)
		if err != nil {
			return err
		}
		if opts.output == "" {
			return store.Export(ctx, w, format)
		}
		f, err := os.Create(opts.output)
		if err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "create export file"), errors.CtxPath, opts.output)
		}
		defer f.Close()
		if err := store.Export(ctx, f, format); err != nil {
			return err
		}
		fmt.Fprintf(w, "exported to %s\n", opts.output)
		return nil

	case "import":
		format, err := transferFormat(opts.format)
		if err != nil {
			return err
		}
		r := stdin
		if opts.input != "" {
			f, err := os.Open(opts.input)
			if err != nil {
				return errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "open import file"), errors.CtxPath, opts.input)
			}
			defer f.Close()
			r = f
		}
		n, err := store.Import(ctx, r, format, opts.replace)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "imported %d items\n", n)
		return nil

	case "backup":
		path := opts.output
		if path == "" {
			path = filepath.Join(a.Paths.BackupDir, "items-"+time.Now().UTC().Format("20060102T150405Z")+".json.zst")
		}
		if err := store.Backup(ctx, path); err != nil {
			return err
		}
		fmt.Fprintf(w, "backup written to %s\n", path)
		return nil

	case "restore":
		n, err := store.Restore(ctx, opts.input)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "restored %d items\n", n)
		return nil
	}
	return errors.Newf(errors.CodeValidationError, "unknown items command %q", opts.items)
}

func itemFromOptions(opts cliOptions) items.Item {
	return items.Item{
		Name:    opts.itemName,
		Type:    opts.itemType,
		Code:    opts.itemCode,
		Tags:    items.ParseTags(opts.itemTags),
		Notes:   opts.itemNotes,
		Autorun: opts.itemAutorun,
	}
}

// patchItem overwrites only the fields given on the command line.
func patchItem(it items.Item, opts cliOptions) items.Item {
	if opts.itemName != "" {
		it.Name = opts.itemName
	}
	if opts.itemType != "" {
		it.Type = opts.itemType
	}
	if opts.itemCode != "" {
		it.Code = opts.itemCode
	}
	if opts.itemTags != "" {
		it.Tags = items.ParseTags(opts.itemTags)
	}
	if opts.itemNotes != "" {
		it.Notes = opts.itemNotes
	}
	if opts.itemAutorun {
		it.Autorun = true
	}
	return it
}

// transferFormat maps --format to an export format; text means JSON.
func transferFormat(format string) (items.Format, error) {
	if format == formatText {
		return items.FormatJSON, nil
	}
	return items.ParseFormat(format)
}
