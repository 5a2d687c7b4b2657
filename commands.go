package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/chazu/tubejoint/pkg/config"
	"github.com/chazu/tubejoint/pkg/export"
	"github.com/chazu/tubejoint/pkg/store"
)

// cli carries the settings shared by every command.
type cli struct {
	cfg    config.Config
	logger *log.Logger
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func (c *cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, c.cfg.Store.Path)
}

// isSceneFile reports whether path is read by the export package rather
// than evaluated as DSL.
func isSceneFile(path string) bool {
	f, err := export.FormatOf(path)
	return err == nil && f != export.FormatOBJ
}

// loadPath fills app from a scene file or DSL source. "-" reads DSL from
// stdin.
func (c *cli) loadPath(app *App, path string) (EvalResult, error) {
	if isSceneFile(path) {
		f, _ := export.FormatOf(path)
		file, err := os.Open(path)
		if err != nil {
			return EvalResult{}, err
		}
		defer file.Close()
		tubes, err := export.Read(f, file)
		if err != nil {
			return EvalResult{}, fmt.Errorf("%s: %w", path, err)
		}
		return checkResult(path, app.Load(tubes))
	}

	var (
		src []byte
		err error
	)
	if path == "-" {
		in := c.stdin
		if in == nil {
			in = os.Stdin
		}
		src, err = io.ReadAll(in)
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return EvalResult{}, err
	}
	return checkResult(path, app.Evaluate(string(src)))
}

func checkResult(source string, res EvalResult) (EvalResult, error) {
	if len(res.Errors) > 0 {
		return res, fmt.Errorf("%s: %s", source, res.errorSummary())
	}
	return res, nil
}

// loadScene resolves the -load flag or the single positional scene argument.
func (c *cli) loadScene(ctx context.Context, app *App, saved string, args []string) (EvalResult, error) {
	switch {
	case saved != "" && len(args) > 0:
		return EvalResult{}, fmt.Errorf("-load and a scene file are mutually exclusive")
	case saved != "":
		s, err := c.openStore(ctx)
		if err != nil {
			return EvalResult{}, err
		}
		defer s.Close()
		tubes, err := s.Load(ctx, saved)
		if err != nil {
			return EvalResult{}, err
		}
		return checkResult(saved, app.Load(tubes))
	case len(args) == 1:
		return c.loadPath(app, args[0])
	default:
		return EvalResult{}, fmt.Errorf("expected exactly one scene, got %d", len(args))
	}
}

func (c *cli) printWarnings(res EvalResult) {
	for _, w := range res.Warnings {
		if w.TubeID != "" {
			fmt.Fprintf(c.stderr, "warning: %s: %s\n", w.TubeID, w.Message)
			continue
		}
		fmt.Fprintf(c.stderr, "warning: %s\n", w.Message)
	}
}

func (c *cli) detect(ctx context.Context, args []string) error {
	fs := c.flagSet("detect")
	format := fs.String("format", "table", "Output format: table, json or csv")
	saved := fs.String("load", "", "Read a saved scene instead of a file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	app, err := NewApp(c.cfg, c.logger)
	if err != nil {
		return err
	}
	res, err := c.loadScene(ctx, app, *saved, fs.Args())
	if err != nil {
		return err
	}
	c.printWarnings(res)
	return writeJoints(c.stdout, *format, res)
}

// writeJoints prints the joint set of res.
func writeJoints(w io.Writer, format string, res EvalResult) error {
	switch format {
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TUBE A\tTUBE B\tTIER\tANGLE\tSTRENGTH\tDISTANCE\tPOSITION")
		for _, j := range res.Joints {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.3f\t%.2f\t%.2f,%.2f,%.2f\n",
				j.TubeA, j.TubeB, j.Tier, j.Angle, j.Strength, j.Distance,
				j.Position[0], j.Position[1], j.Position[2])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%d tubes, %d joints\n", res.Tubes, len(res.Joints))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Joints)
	case "csv":
		cw := csv.NewWriter(w)
		cw.Write([]string{"TubeA", "TubeB", "Tier", "Angle", "Strength", "Distance", "PosX", "PosY", "PosZ"})
		for _, j := range res.Joints {
			cw.Write([]string{
				j.TubeA, j.TubeB, j.Tier,
				ftoa(j.Angle, 4), ftoa(j.Strength, 4), ftoa(j.Distance, 4),
				ftoa(j.Position[0], 2), ftoa(j.Position[1], 2), ftoa(j.Position[2], 2),
			})
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or csv)", format)
	}
}

func ftoa(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := c.flagSet("export")
	out := fs.String("o", "", "Output file; the extension selects the format (required)")
	saved := fs.String("load", "", "Read a saved scene instead of a file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *out == "" {
		fmt.Fprintln(c.stderr, "Error: -o is required")
		fs.Usage()
		return errUsage
	}
	format, err := export.FormatOf(*out)
	if err != nil {
		return err
	}

	app, err := NewApp(c.cfg, c.logger)
	if err != nil {
		return err
	}
	res, err := c.loadScene(ctx, app, *saved, fs.Args())
	if err != nil {
		return err
	}
	c.printWarnings(res)

	if err := writeFile(*out, func(w io.Writer) error {
		return export.Write(format, w, app.Tubes())
	}); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "wrote %d tubes to %s\n", res.Tubes, *out)
	return nil
}

func (c *cli) render(ctx context.Context, args []string) error {
	fs := c.flagSet("render")
	out := fs.String("o", "", "Write meshes as JSON to this file instead of a summary")
	saved := fs.String("load", "", "Read a saved scene instead of a file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	app, err := NewApp(c.cfg, c.logger)
	if err != nil {
		return err
	}
	res, err := c.loadScene(ctx, app, *saved, fs.Args())
	if err != nil {
		return err
	}
	c.printWarnings(res)

	meshes, err := app.Render(ctx)
	if err != nil {
		return err
	}
	if *out != "" {
		return writeFile(*out, func(w io.Writer) error {
			return json.NewEncoder(w).Encode(struct {
				Meshes []MeshData  `json:"meshes"`
				Joints []JointData `json:"joints"`
			}{meshes, res.Joints})
		})
	}
	for _, m := range meshes {
		fmt.Fprintf(c.stdout, "%s: %d vertices, %d triangles\n", m.PartName, len(m.Vertices)/3, len(m.Indices)/3)
	}
	return nil
}

// writeFile writes through a temporary file so a failed export leaves any
// previous file intact.
func writeFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (c *cli) scenes(ctx context.Context, args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(c.stderr, "Usage: tubejoint scenes list | save <name> <scene> | delete <name>")
		return errUsage
	}

	s, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	switch sub, rest := args[0], args[1:]; sub {
	case "list":
		infos, err := s.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTUBES\tSAVED")
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", info.Name, info.TubeCount, info.SavedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	case "save":
		if len(rest) != 2 {
			return fmt.Errorf("scenes save: expected <name> <scene>")
		}
		app, err := NewApp(c.cfg, c.logger)
		if err != nil {
			return err
		}
		res, err := c.loadPath(app, rest[1])
		if err != nil {
			return err
		}
		c.printWarnings(res)
		if err := s.Save(ctx, rest[0], app.Tubes()); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "saved %s: %d tubes, %d joints\n", rest[0], res.Tubes, len(res.Joints))
		return nil
	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("scenes delete: expected <name>")
		}
		if err := s.Delete(ctx, rest[0]); err != nil {
			if errors.Is(err, store.ErrSceneNotFound) {
				return fmt.Errorf("no saved scene named %q", rest[0])
			}
			return err
		}
		fmt.Fprintf(c.stdout, "deleted %s\n", rest[0])
		return nil
	default:
		return fmt.Errorf("scenes: unknown subcommand %q", strings.TrimSpace(sub))
	}
}
