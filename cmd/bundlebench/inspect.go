package main

import (
	"fmt"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"github.com/urfave/cli/v2"

	"github.com/meigma/bundlebench/bundle"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "list the contents of bundles",
		ArgsUsage: "[bundle...]",
		Description: "Without arguments, every staged bundle in the runtime directory is inspected.\n" +
			"Pass --entries to list each asset.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "entries", Aliases: []string{"e"}, Usage: "list every entry"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "only list entries of this type (texture or group)"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			paths := c.Args().Slice()
			if len(paths) == 0 {
				for _, m := range bundle.Compressions {
					paths = append(paths, filepath.Join(e.cfg.Paths.Runtime, bundle.FileName(e.cfg.Bundle.Name, m)))
				}
			}
			filter := bundle.AssetTypeUnknown
			if t := c.String("type"); t != "" {
				if filter, err = bundle.ParseAssetType(t); err != nil {
					return err
				}
			}
			for _, path := range paths {
				if err := inspectBundle(c, e, path, c.Bool("entries"), filter); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func inspectBundle(c *cli.Context, e *env, path string, entries bool, filter bundle.AssetType) error {
	b, err := bundle.Open(c.Context, path, bundle.WithLogger(e.logger))
	if err != nil {
		return fmt.Errorf("inspect %s: %w", path, err)
	}
	defer b.Unload() //nolint:errcheck // read-only inspection

	w := e.stdout
	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  name:        %s\n", b.Name())
	fmt.Fprintf(w, "  compression: %s\n", b.Compression())
	fmt.Fprintf(w, "  size:        %d\n", b.Size())
	fmt.Fprintf(w, "  data size:   %d\n", b.DataSize())
	fmt.Fprintf(w, "  entries:     %d (%d textures, %d groups)\n",
		b.Len(), len(b.AssetNamesOfType(bundle.AssetTypeTexture)), len(b.AssetNamesOfType(bundle.AssetTypeGroup)))
	if !entries {
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "  TYPE\tSIZE\tDIGEST\tPATH")
	for v := range b.Entries() {
		if filter != bundle.AssetTypeUnknown && v.Type() != filter {
			continue
		}
		d := digest.NewDigestFromBytes(digest.SHA256, v.HashBytes())
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\n", v.Type(), v.DataSize(), d.Encoded(), v.Path())
	}
	return tw.Flush()
}
