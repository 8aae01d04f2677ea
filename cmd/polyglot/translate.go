package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fpt/polyglot/internal/admin"
	"github.com/fpt/polyglot/internal/gateway"
	"github.com/fpt/polyglot/pkg/relay/domain"
	"github.com/fpt/polyglot/pkg/translate"
)

func newTranslateCommand(opts *rootOptions) *cobra.Command {
	var from string
	var remote string

	cmd := &cobra.Command{
		Use:     "translate [text]",
		Aliases: []string{"t"},
		Short:   "Dry-run a translation into every other language",
		Example: `polyglot translate --from es "qué onda banda"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := domain.ParseTag(from)
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")

			var lines []translate.PreviewLine
			if remote != "" {
				lines, err = admin.NewClient(nil, remote).Translate(cmd.Context(), text, source)
				if err != nil {
					return errors.Wrapf(err, "admin server %s", remote)
				}
			} else {
				tr, err := localTranslator(cmd.Context(), opts)
				if err != nil {
					return err
				}
				lines = translate.Preview(cmd.Context(), tr, text, source)
			}
			printPreview(cmd.OutOrStdout(), lines)
			return nil
		},
	}

	cmd.Flags().StringVarP(&from, "from", "f", "en", "Source language (en, es, pt)")
	cmd.Flags().StringVar(&remote, "remote", "", "Translate through a running admin server at this address")
	return cmd
}

// localTranslator builds the configured backend without requiring Discord
// settings.
func localTranslator(ctx context.Context, opts *rootOptions) (domain.Translator, error) {
	cfg, err := gateway.LoadTranslatorConfig(opts.path())
	if err != nil {
		return nil, err
	}
	tr, err := translate.New(ctx, cfg.TranslatorSettings())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create translator")
	}
	return tr, nil
}

func printPreview(w io.Writer, lines []translate.PreviewLine) {
	fmt.Fprintln(w, translate.FormatPreview(lines))
	for _, l := range lines {
		if l.Error != "" {
			fmt.Fprintf(w, "  %s failed: %s\n", l.Tag, l.Error)
		}
	}
}
