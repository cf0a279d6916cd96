package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"strings"

	"github.com/alecthomas/repr"
	"github.com/coreos/pkg/capnslog"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/quadc/compiler"
	"github.com/pontaoski/quadc/llvmgen"
	"github.com/pontaoski/quadc/reader"
	"github.com/pontaoski/quadc/symtab"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/quadc", "main")

var sections = map[string]func(r *compiler.Result) string{
	"tokens": func(r *compiler.Result) string {
		return r.TokenSequence + "\n"
	},
	"quads": func(r *compiler.Result) string {
		return r.QuadrupleText()
	},
	"symbols": func(r *compiler.Result) string {
		return r.SymbolText()
	},
	"asm": func(r *compiler.Result) string {
		return r.Assembly
	},
	"llvm": func(r *compiler.Result) string {
		if r.LLVM == nil {
			return ""
		}
		return r.LLVM.String()
	},
}

func setupLogging(level string) error {
	capnslog.SetFormatter(capnslog.NewPrettyFormatter(os.Stderr, false))
	l, err := capnslog.ParseLevel(strings.ToUpper(level))
	if err != nil {
		return err
	}
	capnslog.SetGlobalLogLevel(l)
	return nil
}

func readSource(c *cli.Context) (string, error) {
	if file := c.Args().First(); file != "" {
		data, err := ioutil.ReadFile(file)
		return string(data), err
	}
	data, err := ioutil.ReadAll(os.Stdin)
	return string(data), err
}

// report prints a compilation failure with its source excerpt and exits.
func report(c *cli.Context, err error) {
	if f, ok := compiler.AsFailure(err); ok {
		fmt.Fprintln(os.Stderr, f.Error())
		fmt.Fprintln(os.Stderr, f.Caret())
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	if c.Bool("trace") {
		tracerr.PrintSourceColor(err)
	}
	os.Exit(1)
}

func link(module string, out string, shared bool) error {
	fi, err := ioutil.TempFile("", "*.ll")
	if err != nil {
		return err
	}
	defer os.Remove(fi.Name())
	defer fi.Close()

	_, err = io.Copy(fi, strings.NewReader(module))
	if err != nil {
		return err
	}

	args := []string{"-nostdlib", "-o", out}
	if shared {
		args = append(args, "-shared", "-fPIC")
	} else {
		args = append(args, "-Wl,-e,"+llvmgen.EntryName)
	}
	cmd := exec.Command("clang", append(args, fi.Name())...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	plog.Infof("linking %s", out)
	return cmd.Run()
}

func main() {
	app := &cli.App{
		Name:  "quadc",
		Usage: "quadruple compiler",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "capnslog level (CRITICAL, ERROR, WARNING, NOTICE, INFO, DEBUG, TRACE)",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "print a stack trace with errors",
			},
		},
		Before: func(c *cli.Context) error {
			mod, err := readModule(moduleFile)
			if err != nil {
				return fmt.Errorf("error reading %s: %w", moduleFile, err)
			}
			level := c.String("log-level")
			if level == "" {
				level = mod.LogLevel
			}
			return setupLogging(level)
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "write a project file",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						fmt.Printf("no package name provided\n")
						os.Exit(1)
					}
					if err := writeModule(moduleFile, defaultModule(name)); err != nil {
						fmt.Printf("error creating %s: %s\n", moduleFile, err)
						os.Exit(1)
					}
					return nil
				},
			},
			{
				Name:      "build",
				Usage:     "compile a file, or stdin",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "emit",
						Usage: "sections to print: tokens, quads, symbols, asm, llvm",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "write the assembly to this file",
					},
					&cli.StringFlag{
						Name:  "binary",
						Usage: "link the LLVM module into this executable with clang",
					},
					&cli.BoolFlag{
						Name:  "shared",
						Usage: "link --binary as a shared object instead of an executable",
					},
					&cli.BoolFlag{
						Name: "no-fold",
					},
					&cli.BoolFlag{
						Name: "no-cse",
					},
				},
				Action: func(c *cli.Context) error {
					mod, err := readModule(moduleFile)
					if err != nil {
						return err
					}

					emit := c.StringSlice("emit")
					if len(emit) == 0 {
						emit = mod.Emit
					}
					for _, s := range emit {
						if _, ok := sections[s]; !ok {
							return fmt.Errorf("unknown section %q", s)
						}
					}

					opts := compiler.Options{
						Fold: mod.Optimize.Fold && !c.Bool("no-fold"),
						CSE:  mod.Optimize.CSE && !c.Bool("no-cse"),
						LLVM: c.String("binary") != "",
					}
					for _, s := range emit {
						if s == "llvm" {
							opts.LLVM = true
						}
					}

					src, err := readSource(c)
					if err != nil {
						return err
					}
					r, err := compiler.Compile(src, opts)
					if err != nil {
						report(c, err)
					}

					for _, s := range emit {
						fmt.Print(sections[s](r))
					}

					if out := c.String("output"); out != "" {
						if err := ioutil.WriteFile(out, []byte(r.Assembly), 0644); err != nil {
							return err
						}
					}
					if bin := c.String("binary"); bin != "" {
						if err := link(r.LLVM.String(), bin, c.Bool("shared")); err != nil {
							tracerr.PrintSourceColor(tracerr.Wrap(err))
							os.Exit(1)
						}
					}
					return nil
				},
			},
			{
				Name:      "dump",
				Usage:     "dump the quadruples and symbol table of a file",
				ArgsUsage: "[file]",
				Action: func(c *cli.Context) error {
					src, err := readSource(c)
					if err != nil {
						return err
					}
					r, err := compiler.Compile(src, compiler.DefaultOptions)
					if err != nil && r.Symbols == nil {
						report(c, err)
					}

					repr.Println(r.Quadruples)
					scopes := make(map[string][]symtab.Symbol)
					for _, scope := range r.Symbols.Scopes() {
						scopes[scope] = r.Symbols.Symbols(scope)
					}
					repr.Println(scopes)
					return nil
				},
			},
			{
				Name:      "typeinfo",
				Usage:     "print the function signatures of a source file or a shared object built with --shared",
				ArgsUsage: "[file]",
				Action: func(c *cli.Context) error {
					if file := c.Args().First(); strings.HasSuffix(file, ".so") {
						info, err := reader.ReadTypeInfo(file)
						if err != nil {
							return err
						}
						repr.Println(info)
						return nil
					}

					src, err := readSource(c)
					if err != nil {
						return err
					}
					r, err := compiler.Compile(src, compiler.Options{Fold: true, CSE: true, LLVM: true})
					if err != nil {
						report(c, err)
					}
					info, err := llvmgen.ReadTypeInfo(r.LLVM)
					if err != nil {
						return err
					}
					repr.Println(info)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
