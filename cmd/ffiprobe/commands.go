package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/ffi-bridge/bindgen"
	"github.com/wippyai/ffi-bridge/binding"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/surface"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newListCmd(_ *app) *cobra.Command {
	var convention string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List exported symbols with their conventions and signatures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			tty := isTerminal(out)
			paint := func(style lipgloss.Style, text string) string {
				if !tty {
					return text
				}
				return style.Render(text)
			}

			n := 0
			for _, f := range surface.Default().Functions() {
				if convention != "" && f.Convention.String() != convention {
					continue
				}
				fmt.Fprintf(out, "%s %s %s\n",
					paint(nameStyle, fmt.Sprintf("%-24s", f.Name)),
					paint(sigStyle, fmt.Sprintf("%-10s", f.Convention)),
					f.Signature)
				n++
			}
			if n == 0 && convention != "" {
				return errors.InvalidInput(errors.PhaseConfig, "no symbols use convention "+convention)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&convention, "convention", "", "only list symbols using this convention")
	return cmd
}

func newCallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "call <symbol> [args...]",
		Short: "Call one symbol in-process and print the decoded result",
		Long: `Call marshals the arguments into a private address space, invokes the
symbol, checks its error signal and releases any owned result.

Arrays are comma separated ("3,1,2"), points are "x,y" and an out byte
buffer is given by its size.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := binding.NewSession(a.cfg.Session())
			if err != nil {
				return err
			}
			defer s.Close()

			f, ok := s.Registry().Lookup(args[0])
			if !ok {
				return errors.NotFound(errors.PhaseCall, "symbol", args[0])
			}
			values, err := binding.ParseArgs(f, args[1:])
			if err != nil {
				return err
			}
			results, err := s.Call(cmd.Context(), f.Name, values...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatResults(results))
			return nil
		},
	}
}

// output opens the -o target, or stdout when none is given.
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func newHeaderCmd(_ *app) *cobra.Command {
	var library, path string
	cmd := &cobra.Command{
		Use:   "header",
		Short: "Write the C header for the surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generate(cmd, library, path, bindgen.Header)
		},
	}
	cmd.Flags().StringVar(&library, "library", "ffibridge", "library name used for the include guard")
	cmd.Flags().StringVarP(&path, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newManifestCmd(_ *app) *cobra.Command {
	var library, path string
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Write the JSON symbol manifest for dynamic loaders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generate(cmd, library, path, bindgen.WriteManifest)
		},
	}
	cmd.Flags().StringVar(&library, "library", "ffibridge", "library name recorded in the manifest")
	cmd.Flags().StringVarP(&path, "output", "o", "", "output file (default stdout)")
	return cmd
}

func generate(cmd *cobra.Command, library, path string, write func(io.Writer, *bindgen.Model) error) error {
	m, err := bindgen.Build(library, surface.Default())
	if err != nil {
		return err
	}
	w, closeFn, err := output(cmd, path)
	if err != nil {
		return err
	}
	if err := write(w, m); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}
