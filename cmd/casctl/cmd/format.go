package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// Formatter renders the result of a command
type Formatter interface {
	Format(io.Writer, interface{}) error
}

// FormatterFunc is a function usable as a Formatter
type FormatterFunc func(io.Writer, interface{}) error

// Format implements Formatter
func (f FormatterFunc) Format(w io.Writer, data interface{}) error { return f(w, data) }

var builtinFormatters = map[string]Formatter{
	"json": FormatterFunc(func(w io.Writer, data interface{}) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}),
	"yaml": FormatterFunc(func(w io.Writer, data interface{}) error {
		b, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}),
}

type formatFlag struct {
	value      string
	formatters map[string]Formatter
}

// formats registered per command
var formats = map[*cobra.Command]*formatFlag{}

func addFormatFlag(cmd *cobra.Command, def string, extra ...map[string]Formatter) string {
	ff := &formatFlag{formatters: make(map[string]Formatter, len(builtinFormatters))}
	for k, v := range builtinFormatters {
		ff.formatters[k] = v
	}
	for _, m := range extra {
		for k, v := range m {
			ff.formatters[k] = v
		}
	}
	formats[cmd] = ff

	names := make([]string, 0, len(ff.formatters))
	for k := range ff.formatters {
		names = append(names, k)
	}
	sort.Strings(names)
	format := "format"
	cmd.Flags().StringVar(&ff.value, format, def, "The output format: "+strings.Join(names, ", "))
	return format
}

// printResult renders the result of a command with the format selected by its flag
func printResult(cmd *cobra.Command, data interface{}) error {
	ff, ok := formats[cmd]
	if !ok {
		return fmt.Errorf("command %q has no output format", cmd.Name())
	}
	f, ok := ff.formatters[ff.value]
	if !ok {
		return fmt.Errorf("unsupported format %q", ff.value)
	}
	return f.Format(infoLogger.Writer(), data)
}
