package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.3.0"

// errUsage is returned after usage has been printed.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "tubejoint: %v\n", err)
		os.Exit(1)
	}
}

// run parses global flags and dispatches to a command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tubejoint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }
	configPath := fs.String("config", "", "TOML config file")
	dbPath := fs.String("db", "", "Scene database (overrides store.path)")
	verbose := fs.Bool("v", false, "Log assembly recomputes to stderr")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if fs.NArg() < 1 {
		printUsage(stderr)
		return errUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(stderr, "", log.LstdFlags)
	}

	c := &cli{cfg: cfg, logger: logger, stdout: stdout, stderr: stderr}
	command, rest := fs.Arg(0), fs.Args()[1:]

	switch command {
	case "detect":
		return c.detect(ctx, rest)
	case "export":
		return c.export(ctx, rest)
	case "render":
		return c.render(ctx, rest)
	case "watch":
		return c.watch(ctx, rest)
	case "scenes":
		return c.scenes(ctx, rest)
	case "version":
		fmt.Fprintf(stdout, "tubejoint version %s\n", version)
		return nil
	case "help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `tubejoint - joint inference for rectangular tube assemblies

Usage: tubejoint [-config file] [-db file] [-v] <command> [options]

Commands:
  detect    Print the joints of a scene
  export    Convert a scene to JSON, YAML, CSV or OBJ
  render    Tessellate a scene into preview meshes (JSON)
  watch     Re-run detection whenever a scene file changes
  scenes    Manage scenes saved in the database (list, save, delete)
  version   Show tubejoint version
  help      Show this help message

Scenes:
  A scene argument is a file path. .json, .yaml, .yml and .csv files are
  scene files; any other file (or - for stdin) is evaluated as DSL:

    (square-tube "post" :length 600)
    (rect-tube "rail" :width 40 :height 20 :at (vec3 0 0 280) :rotate (vec3 0 90 0))

  detect, export and render also accept -load <name> to read a saved scene.

Examples:
  tubejoint detect frame.tube
  tubejoint detect -format json frame.json
  tubejoint export -o frame.obj frame.tube
  tubejoint scenes save frame frame.tube
  tubejoint -db scenes.db detect -load frame`)
}
