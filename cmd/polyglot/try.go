package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fpt/polyglot/pkg/relay/domain"
	"github.com/fpt/polyglot/pkg/translate"
)

func newTryCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "try",
		Short: "Interactively preview translations",
		Long:  "Pick a source language, then type lines to see how the relay would translate them. /lang switches language, /quit exits.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("try needs an interactive terminal; use `polyglot translate` instead")
			}
			tr, err := localTranslator(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return runConsole(cmd.Context(), tr, cmd.OutOrStdout())
		},
	}
}

// selectLanguage shows a language picker.
func selectLanguage() (domain.Tag, error) {
	langs := make([]domain.Language, 0, len(domain.AllTags))
	for _, tag := range domain.AllTags {
		langs = append(langs, domain.MustLanguage(tag))
	}

	prompt := promptui.Select{
		Label: "Source language",
		Items: langs,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}?",
			Active:   "▸ {{ .Flag }} {{ .Label | cyan }}",
			Inactive: "  {{ .Flag }} {{ .Label }}",
			Selected: "{{ .Flag }} {{ .Label | cyan }}",
		},
		Size: len(langs),
	}

	i, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return langs[i].Tag, nil
}

func runConsole(ctx context.Context, tr domain.Translator, out io.Writer) error {
	source, err := selectLanguage()
	if err != nil {
		if err == promptui.ErrInterrupt {
			return nil
		}
		return errors.Wrap(err, "language selection failed")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            consolePrompt(source),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		HistoryLimit:      500,
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("/lang"),
			readline.PcItem("/quit"),
		),
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize console")
	}
	defer rl.Close()

	fmt.Fprintln(out, "💬 Type a message to preview its translations. /lang switches language, /quit exits.")
	fmt.Fprintln(out, strings.Repeat("=", 60))

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/lang":
			next, err := selectLanguage()
			if err != nil {
				fmt.Fprintln(out, "Cancelled.")
				continue
			}
			source = next
			rl.SetPrompt(consolePrompt(source))
			continue
		}

		printPreview(out, translate.Preview(ctx, tr, line, source))
		fmt.Fprintln(out)
	}
}

func consolePrompt(tag domain.Tag) string {
	return domain.MustLanguage(tag).Flag + " > "
}
