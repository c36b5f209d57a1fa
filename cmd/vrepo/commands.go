package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"vrepo/internal/config"
	"vrepo/internal/fs"
	"vrepo/internal/logging"
	"vrepo/internal/repository"

	"github.com/disiqueira/gotree/v3"
	"github.com/fatih/color"
	"github.com/urfave/cli"
)

var (
	errNoIndex  = errors.New("an index file is required (--index)")
	errNoSource = errors.New("either --index or --config is required")

	dirColor  = color.New(color.FgHiBlue, color.Bold)
	linkColor = color.New(color.FgHiCyan)
)

// openRepository opens the repository selected by the global flags: a
// composite described by --config or a single index.
func openRepository(c *cli.Context) (repository.Repository, error) {
	if path := c.GlobalString("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		explicit := c.GlobalBool("verbose") || c.GlobalString("log-level") != ""
		if level, ok := cfg.Level(); ok && !explicit {
			logger.SetLevel(level)
		}
		logger.Debug("Using config %s with mounts %v", path, cfg.MountPoints())
		return cfg.Build()
	}
	if c.GlobalString("index") == "" {
		return nil, errNoSource
	}
	return openIndex(c)
}

// openIndex opens the index named by --index for editing.
func openIndex(c *cli.Context) (*repository.JSONRepository, error) {
	index := c.GlobalString("index")
	if index == "" {
		return nil, errNoIndex
	}
	logger.Debug("Using index %s", index)
	return repository.OpenJSONRepository(index, c.GlobalString("base"))
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return fmt.Errorf("%s expects %d argument(s): %s", c.Command.Name, n, c.Command.ArgsUsage)
	}
	return nil
}

func pathArg(c *cli.Context) string {
	if c.NArg() == 0 {
		return "/"
	}
	return c.Args().First()
}

func addCommand(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	repo, err := openIndex(c)
	if err != nil {
		return err
	}

	p, target := c.Args().Get(0), c.Args().Get(1)
	var res repository.Resource
	if c.Bool("link") {
		res = repository.NewLinkResource(target, p)
	} else {
		fsPath, err := filepath.Abs(target)
		if err != nil {
			return err
		}
		if res, err = repository.NewFilesystemResource(fsPath, p); err != nil {
			return err
		}
	}

	before := repo.Index().Len()
	if err := repo.Add(p, res); err != nil {
		return err
	}
	fmt.Printf("added %s (%d entries)\n", p, repo.Index().Len()-before)
	return nil
}

func removeCommand(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	repo, err := openIndex(c)
	if err != nil {
		return err
	}
	query := c.Args().First()
	if c.Bool("literal") {
		query = repository.QuoteGlob(query)
	}
	removed, err := repo.Remove(query, repository.LanguageGlob)
	if err != nil {
		return err
	}
	fmt.Println(removed)
	return nil
}

func clearCommand(c *cli.Context) error {
	repo, err := openIndex(c)
	if err != nil {
		return err
	}
	removed, err := repo.Clear()
	if err != nil {
		return err
	}
	fmt.Println(removed)
	return nil
}

func getCommand(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	repo, err := openRepository(c)
	if err != nil {
		return err
	}
	res, err := repo.Get(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Println(describe(res))
	return nil
}

func findCommand(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	repo, err := openRepository(c)
	if err != nil {
		return err
	}
	found, err := repo.Find(c.Args().First(), c.String("language"))
	if err != nil {
		return err
	}
	for _, res := range found {
		fmt.Println(describe(res))
	}
	return nil
}

func lsCommand(c *cli.Context) error {
	repo, err := openRepository(c)
	if err != nil {
		return err
	}
	children, err := repo.ListChildren(pathArg(c))
	if err != nil {
		return err
	}
	writeListing(os.Stdout, children)
	return nil
}

func treeCommand(c *cli.Context) error {
	repo, err := openRepository(c)
	if err != nil {
		return err
	}
	out, err := renderTree(repo, pathArg(c))
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func serveCommand(c *cli.Context) error {
	mountPoint := c.String("mount")
	if mountPoint == "" {
		return errors.New("serve requires --mount")
	}
	repo, err := openRepository(c)
	if err != nil {
		return err
	}

	vfs := fs.NewRepoFS(repo)
	cleanMount := filepath.Clean(mountPoint)
	logger.Info("Mounting filesystem at %s", cleanMount)
	if err := vfs.Mount(cleanMount); err != nil {
		return err
	}

	logger.Debug("Setting up signal handlers...")
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for range hup {
			if err := vfs.Reload(); err != nil {
				logger.Error("Reload failed: %v", err)
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Filesystem mounted and ready")
	if err := vfs.Wait(ctx); err != nil {
		logger.Info("Received signal, unmounting")
		if err := vfs.Unmount(cleanMount); err != nil {
			return err
		}
	}
	logger.Info("Clean shutdown complete")
	return nil
}

// describe renders a resource as "path<TAB>kind[<TAB>reference]".
func describe(res repository.Resource) string {
	fields := []string{res.Path(), kindOf(res)}
	switch r := res.(type) {
	case repository.FilesystemResource:
		fields = append(fields, r.FilesystemPath())
	case *repository.LinkResource:
		fields = append(fields, r.Target())
	}
	return strings.Join(fields, "\t")
}

func kindOf(res repository.Resource) string {
	switch res.(type) {
	case *repository.FileResource:
		return "file"
	case *repository.DirectoryResource:
		return "dir"
	case *repository.LinkResource:
		return "link"
	default:
		return "generic"
	}
}

// writeListing prints one child per line. Listable children get a trailing
// slash and are highlighted when the output is a terminal.
func writeListing(w io.Writer, children []repository.Resource) {
	for _, child := range children {
		switch child.(type) {
		case *repository.FileResource:
			fmt.Fprintln(w, child.Name())
		case *repository.LinkResource:
			fmt.Fprintln(w, linkColor.Sprint(child.Name()+"@"))
		default:
			fmt.Fprintln(w, dirColor.Sprint(child.Name()+"/"))
		}
	}
}

// renderTree draws the subtree of repo below root.
func renderTree(repo repository.Repository, root string) (string, error) {
	res, err := repo.Get(root)
	if err != nil {
		return "", err
	}
	tree := gotree.New(res.Path())
	if err := addSubtree(repo, tree, res.Path()); err != nil {
		return "", err
	}
	return tree.Print(), nil
}

func addSubtree(repo repository.Repository, tree gotree.Tree, p string) error {
	children, err := repo.ListChildren(p)
	if err != nil {
		return err
	}
	for _, child := range children {
		label := child.Name()
		if link, ok := child.(*repository.LinkResource); ok {
			tree.Add(label + " -> " + link.Target())
			continue
		}
		if err := addSubtree(repo, tree.Add(label), child.Path()); err != nil {
			return err
		}
	}
	return nil
}

func setLevel(name string) error {
	level, err := logging.ParseLevel(name)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}
