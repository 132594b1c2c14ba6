package cmd

import (
	"bytes"
	"context"
	"text/template"

	"github.com/fatih/color"
	"github.com/oneconcern/contentstore/pkg/tree"
	"github.com/spf13/cobra"
)

// diffLine is rendered by the diff template
type diffLine struct {
	Type    string
	Key     string
	Kind    string
	From    string
	To      string
	SubTree string
}

const diffLineTemplateString = `{{.Type}} {{.Key}}{{with .From}} {{.}}{{end}}{{if and .From .To}} ->{{end}}{{with .To}} {{.}}{{end}}{{with .SubTree}} {{.}}{{end}}`

func diffTemplate() (*template.Template, error) {
	if casFlags.index.template != "" {
		return template.New("diff line").Parse(casFlags.index.template)
	}
	return template.New("diff line").Parse(diffLineTemplateString)
}

var diffColors = map[tree.DiffKind]*color.Color{
	tree.AddedInB:     color.New(color.FgGreen),
	tree.RemovedFromB: color.New(color.FgRed),
	tree.Changed:      color.New(color.FgYellow),
	tree.Unchanged:    color.New(color.FgHiBlack),
}

var diffTypes = map[tree.DiffKind]string{
	tree.AddedInB:     "+",
	tree.RemovedFromB: "-",
	tree.Changed:      "~",
	tree.Unchanged:    "=",
}

func newDiffLine(d tree.Difference) diffLine {
	line := diffLine{
		Type: diffTypes[d.Kind],
		Key:  formatKey(d.Key),
		Kind: d.Kind.String(),
	}
	if !d.A.ID.IsZero() {
		line.From = d.A.ID.String()
	}
	if !d.B.ID.IsZero() {
		line.To = d.B.ID.String()
	}
	if !d.SubTree.IsEmpty() {
		line.SubTree = d.SubTree.String()
	}
	return line
}

var indexDiffCmd = &cobra.Command{
	Use:   "diff FROM [TO]",
	Short: "Compare two roots of an index",
	Long: `Report the keys added, removed or changed from one root of an index to another.

TO defaults to the current root. Sub-trees shared by both roots are not read.
The empty string stands for the empty index.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		from, err := tree.ParseTreeIdentifier(args[0])
		if err != nil {
			wrapFatalln("invalid root "+args[0], err)
			return
		}
		to, err := readRoot()
		if len(args) > 1 {
			to, err = tree.ParseTreeIdentifier(args[1])
		}
		if err != nil {
			wrapFatalln("invalid root", err)
			return
		}
		tmpl, err := diffTemplate()
		if err != nil {
			wrapFatalln("invalid template", err)
			return
		}

		stack, err := openStack(ctx, nil)
		if err != nil {
			wrapFatalln("failed to open content provider", err)
			return
		}
		defer closeStack(stack)

		var opts []tree.DiffOption
		if casFlags.index.unchanged {
			opts = append(opts, tree.ReportUnchanged())
		}
		var buf bytes.Buffer
		err = tree.Diff(ctx, stack, from, to, func(d tree.Difference) error {
			buf.Reset()
			if err := tmpl.Execute(&buf, newDiffLine(d)); err != nil {
				return err
			}
			infoLogger.Println(diffColors[d.Kind].Sprint(buf.String()))
			return nil
		}, opts...)
		if err != nil {
			wrapFatalln("failed to compare roots", err)
			return
		}
	},
}

func init() {
	addUnchangedFlag(indexDiffCmd)
	addTemplateFlag(indexDiffCmd)
	indexCmd.AddCommand(indexDiffCmd)
}
