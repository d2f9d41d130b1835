// reglet-script runs JavaScript against the plug-ins registered with the
// script bridge. Without -e or -f it starts an interactive console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/reglet-dev/reglet-script/application/schema"
	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/ports"
	"github.com/reglet-dev/reglet-script/host"
	"github.com/reglet-dev/reglet-script/host/registry"
	"github.com/reglet-dev/reglet-script/infrastructure/config"
	"github.com/reglet-dev/reglet-script/infrastructure/wasm"
	"github.com/reglet-dev/reglet-script/log"
)

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (f *multiFlag) String() string { return strings.Join(*f, ",") }

func (f *multiFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

type options struct {
	configPath   string
	command      string
	file         string
	logLevel     string
	schema       string
	manifests    multiFlag
	wasm         multiFlag
	vars         multiFlag
	list         bool
	showGlobal   bool
	configSchema bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("reglet-script", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "configuration file (.yaml, .yml or .toml)")
	fs.StringVar(&opts.command, "e", "", "execute a command and exit")
	fs.StringVar(&opts.file, "f", "", "run a script file as a scoped command and exit")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&opts.schema, "schema", "", "print the argument JSON Schema of a plug-in and exit")
	fs.Var(&opts.manifests, "manifest", "register the script plug-in declared by a manifest (repeatable)")
	fs.Var(&opts.wasm, "wasm", "register a WebAssembly plug-in module (repeatable)")
	fs.Var(&opts.vars, "var", "manifest template variable key=value (repeatable)")
	fs.BoolVar(&opts.list, "list", false, "list registered plug-ins and exit")
	fs.BoolVar(&opts.showGlobal, "show-global", false, "also send scoped output to the console")
	fs.BoolVar(&opts.configSchema, "config-schema", false, "print the JSON Schema of the configuration file and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	if opts.configSchema {
		data, err := schema.GenerateSchema(entities.Config{})
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "%s\n", data)
		return 0
	}

	cfg := entities.DefaultConfig()
	if opts.configPath != "" {
		if cfg, err = config.Load(opts.configPath); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.showGlobal {
		cfg.ShowGlobalOutput = true
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	console := &consoleWriter{out: stdout, errOut: stderr}
	logger := slog.New(log.NewListenerHandler(ports.WriterListener(console.Err()), log.WithLevel(level)))

	reg := registry.NewRegistry()
	interp := host.New(reg,
		host.WithConfig(cfg),
		host.WithLogger(logger),
		host.WithGlobalOutput(ports.WriterListener(console.Out()), ports.WriterListener(console.Err())),
	)
	defer interp.Close()

	if len(opts.wasm) > 0 {
		rt, err := wasm.NewRuntime(ctx, wasm.WithLogger(logger))
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer rt.Close(context.Background())
		if err := registerWasm(ctx, rt, reg, opts.wasm, logger); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	if err := registerManifests(interp, opts.manifests, opts.vars, logger); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	switch {
	case opts.list:
		listPlugins(reg, stdout)
		return 0
	case opts.schema != "":
		return printSchema(reg, opts.schema, stdout, stderr)
	}

	if !interp.Start(ctx) {
		return 1
	}

	switch {
	case opts.command != "":
		if !interp.ExecuteCommand(ctx, opts.command) {
			return 1
		}
		if v := interp.LastValue(); v != "" {
			fmt.Fprintln(stdout, v)
		}
		return 0
	case opts.file != "":
		return runWizard(ctx, interp, opts.file, stdout, stderr)
	}

	if err := repl(ctx, interp, stdin, console); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func registerWasm(ctx context.Context, rt *wasm.Runtime, reg ports.PluginRegistry, paths []string, logger *slog.Logger) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("wasm plug-in: %w", err)
		}
		desc, err := rt.Register(ctx, reg, data)
		if err != nil {
			return fmt.Errorf("wasm plug-in %s: %w", path, err)
		}
		logger.Debug("registered wasm plug-in", "name", desc.Name, "path", path)
	}
	return nil
}

func registerManifests(interp *host.Interpreter, paths, vars []string, logger *slog.Logger) error {
	if len(paths) == 0 {
		return nil
	}
	templateVars := make(map[string]interface{}, len(vars))
	for _, kv := range vars {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid -var %q: expected key=value", kv)
		}
		templateVars[key] = value
	}

	loader := host.NewLoader()
	for _, path := range paths {
		m, err := loader.LoadManifestFile(path, templateVars)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := interp.RegisterScriptPlugin(m); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Debug("registered script plug-in", "name", m.Name, "script", m.Script)
	}
	return nil
}

func listPlugins(reg *registry.Registry, w io.Writer) {
	for _, name := range reg.List() {
		desc, _ := reg.Descriptor(name)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", desc.Name, desc.Version, desc.Kind, desc.Description)
	}
}

func printSchema(reg *registry.Registry, name string, stdout, stderr io.Writer) int {
	in, out, err := reg.GetSchema(name)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s\n%s\n", in, out)
	return 0
}

// runWizard runs path through the wizard plug-in, printing its progress.
func runWizard(ctx context.Context, interp *host.Interpreter, path string, stdout, stderr io.Writer) int {
	p, err := interp.Registry().Create(host.WizardName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if c, ok := p.(io.Closer); ok {
		defer c.Close()
	}

	in, err := p.InputSpecification()
	if err == nil {
		err = in.SetValue("Filename", entities.NewFilename(path))
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	out, err := p.OutputSpecification()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ok, err := p.Execute(host.WithInterpreter(ctx, interp), in, out, &progressPrinter{out: stdout, errOut: stderr})
	if err != nil {
		slog.Debug("wizard failed", "error", err)
	}
	if !ok {
		return 1
	}
	return 0
}
