package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/jvmkit/jni-runtime/jvm"
)

func main() {
	var (
		className   = flag.String("class", "", "Java class to instantiate or call (dot form)")
		methodName  = flag.String("method", "", "Method to call (optional; static when -static is set)")
		static      = flag.Bool("static", false, "Call the method statically instead of on a new instance")
		argList     = flag.String("args", "", "String arguments (comma-separated)")
		classpath   = flag.String("classpath", "", "Extra classpath entries (comma-separated)")
		basePath    = flag.String("base", "", "Base directory holding the jassets dependency dir")
		javaOpts    = flag.String("opts", "", "Raw JVM options (comma-separated)")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			jvm.SetLogger(l)
			defer l.Sync()
		}
	}

	cfg := shellConfig{
		classpath: splitList(*classpath),
		basePath:  *basePath,
		javaOpts:  splitList(*javaOpts),
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *className == "" {
		fmt.Fprintln(os.Stderr, "Usage: jshell -class <name> [-method name] [-static] [-args a,b] [-classpath x.jar,y.jar]")
		fmt.Fprintln(os.Stderr, "       jshell -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(cfg, *className, *methodName, *static, splitList(*argList)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type shellConfig struct {
	classpath []string
	basePath  string
	javaOpts  []string
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func buildRuntime(cfg shellConfig) (*jvm.Runtime, error) {
	b := jvm.NewBuilder().
		ClasspathEntries(cfg.classpath...).
		JavaOpts(cfg.javaOpts...)
	if cfg.basePath != "" {
		b.BasePath(cfg.basePath)
	}
	return b.Build()
}

func run(cfg shellConfig, className, methodName string, static bool, args []string) (err error) {
	rt, err := buildRuntime(cfg)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}
	defer func() {
		err = multierr.Append(err, rt.Close())
	}()

	result, cleanup, err := call(rt, className, methodName, static, args)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, closeAll(cleanup...))
	}()

	var value any
	if err := rt.ToNative(result, &value); err != nil {
		return err
	}
	fmt.Printf("%v\n", value)
	return nil
}

// call performs one shell invocation and returns the result instance plus
// everything that needs closing, result included.
func call(rt *jvm.Runtime, className, methodName string, static bool, args []string) (*jvm.Instance, []io.Closer, error) {
	var closers []io.Closer

	jargs := make([]*jvm.InvocationArg, 0, len(args))
	for _, a := range args {
		arg, err := jvm.StringArg(rt, a)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, arg)
		jargs = append(jargs, arg)
	}

	if methodName == "" {
		inst, err := rt.CreateInstance(className, jargs...)
		if err != nil {
			return nil, closers, err
		}
		return inst, append(closers, inst), nil
	}

	if static {
		res, err := rt.InvokeStatic(className, methodName, jargs...)
		if err != nil {
			return nil, closers, err
		}
		return res, append(closers, res), nil
	}

	inst, err := rt.CreateInstance(className)
	if err != nil {
		return nil, closers, err
	}
	closers = append(closers, inst)

	res, err := rt.Invoke(inst, methodName, jargs...)
	if err != nil {
		return nil, closers, err
	}
	return res, append(closers, res), nil
}

func closeAll(closers ...io.Closer) error {
	var err error
	for _, c := range closers {
		if c != nil {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
