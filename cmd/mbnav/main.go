package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Greenplumwine/mbnav/internal/config"
	"github.com/Greenplumwine/mbnav/internal/debug"
	"github.com/Greenplumwine/mbnav/internal/engine"
	"github.com/Greenplumwine/mbnav/internal/mcp"
	"github.com/Greenplumwine/mbnav/internal/nav"
	"github.com/Greenplumwine/mbnav/internal/types"
	"github.com/Greenplumwine/mbnav/internal/version"
	"github.com/Greenplumwine/mbnav/pkg/pathutil"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = cwd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load config for %s: %w", absRoot, err)
	}
	cfg.Project.Root = absRoot

	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}
	if dirs := c.StringSlice("statement-dir"); len(dirs) > 0 {
		cfg.Resolution.CustomStatementDirs = append(cfg.Resolution.CustomStatementDirs, dirs...)
	}

	v := config.NewValidator()
	warnings, err := v.ValidateAndSetDefaults(cfg)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	return cfg, nil
}

func newEngine(c *cli.Context, opts ...engine.Option) (*engine.Engine, *config.Config, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return eng, cfg, nil
}

// printEditor satisfies the editor host surface by printing jump targets in
// path:line:column form, which editors and shell pipelines both understand.
type printEditor struct{}

func (printEditor) IsOpen(string) bool { return false }

func (printEditor) Open(ctx context.Context, path string, pos types.Position, split bool) error {
	fmt.Printf("%s:%d:%d\n", path, pos.Line+1, pos.Column+1)
	return nil
}

func main() {
	app := &cli.App{
		Name:                   "mbnav",
		Usage:                  "Mapper interface and statement XML navigation for MyBatis projects",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (defaults to the working directory)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (e.g., --exclude '**/generated/**')",
			},
			&cli.StringSliceFlag{
				Name:  "statement-dir",
				Usage: "Extra directory to check for statement files before scanning",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "resolve",
				Usage:     "Resolve the counterpart file for a mapper interface or statement file",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Emit the result as JSON"},
				},
				Action: resolveCommand,
			},
			{
				Name:      "jump",
				Usage:     "Resolve a counterpart and print the jump target as path:line:column",
				ArgsUsage: "<file> [method-or-statement-id]",
				Action:    jumpCommand,
			},
			{
				Name:  "mappings",
				Usage: "Scan the workspace and list all interface-to-statement pairings",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Emit the mappings as JSON"},
				},
				Action: mappingsCommand,
			},
			{
				Name:      "params",
				Usage:     "List the parameters of a mapper method",
				ArgsUsage: "<interface-file> <method>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Emit the parameters as JSON"},
				},
				Action: paramsCommand,
			},
			{
				Name:   "watch",
				Usage:  "Keep mappings current while files change, printing cache updates",
				Action: watchCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the mapping engine over the Model Context Protocol on stdio",
				Action: mcpCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func resolveCommand(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: mbnav resolve <file>")
	}
	path, err := filepath.Abs(c.Args().First())
	if err != nil {
		return err
	}

	eng, _, err := newEngine(c, engine.WithoutLanguageService())
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.JumpTo(c.Context, path, "")
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(res)
	}
	fmt.Println(res.Path)
	return nil
}

func jumpCommand(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: mbnav jump <file> [method-or-statement-id]")
	}
	path, err := filepath.Abs(c.Args().First())
	if err != nil {
		return err
	}
	name := c.Args().Get(1)

	eng, _, err := newEngine(c, engine.WithEditor(printEditor{}))
	if err != nil {
		return err
	}
	defer eng.Close()

	_, err = eng.JumpTo(c.Context, path, name)
	if errors.Is(err, nav.ErrThrottled) {
		return nil
	}
	return err
}

func mappingsCommand(c *cli.Context) error {
	eng, cfg, err := newEngine(c, engine.WithoutLanguageService())
	if err != nil {
		return err
	}
	defer eng.Close()

	n, err := eng.RefreshAllMappings(c.Context)
	if err != nil {
		return err
	}
	mappings := eng.Mappings()

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(mappings)
	}

	interfaces := make([]string, 0, len(mappings))
	for iface := range mappings {
		interfaces = append(interfaces, iface)
	}
	sort.Strings(interfaces)
	for _, iface := range interfaces {
		fmt.Printf("%s -> %s\n",
			pathutil.ToRelative(cfg.Project.Root, iface),
			pathutil.ToRelative(cfg.Project.Root, mappings[iface]))
	}
	fmt.Printf("%d mappings\n", n)
	return nil
}

func paramsCommand(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("usage: mbnav params <interface-file> <method>")
	}
	path, err := filepath.Abs(c.Args().First())
	if err != nil {
		return err
	}
	method := c.Args().Get(1)

	eng, _, err := newEngine(c, engine.WithoutLanguageService())
	if err != nil {
		return err
	}
	defer eng.Close()

	params, err := eng.ExtractParameters(c.Context, path, method)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(params)
	}
	for _, p := range params {
		if len(p.Fields) > 0 {
			fmt.Printf("%s %s %v\n", p.Type, p.Name, p.Fields)
		} else {
			fmt.Printf("%s %s\n", p.Type, p.Name)
		}
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	eng, _, err := newEngine(c, engine.WithoutLanguageService())
	if err != nil {
		return err
	}
	defer eng.Close()

	n, err := eng.RefreshAllMappings(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("watching with %d mappings\n", n)

	if err := eng.Watch(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

func mcpCommand(c *cli.Context) error {
	debug.SetMCPMode(true)

	eng, _, err := newEngine(c)
	if err != nil {
		return err
	}
	defer eng.Close()

	if _, err := eng.RefreshAllMappings(c.Context); err != nil {
		fmt.Fprintf(os.Stderr, "warning: initial scan failed: %v\n", err)
	}
	if err := eng.Watch(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: file watching unavailable: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return mcp.NewServer(eng).Run(ctx)
}
