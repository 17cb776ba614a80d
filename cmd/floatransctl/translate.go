package main

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"floatrans/internal/config"
	"floatrans/internal/translate"
	"floatrans/internal/translator"
)

var (
	loadCredentialsFn = config.LoadCredentials
	newTranslatorFn   = translate.New
)

type translateOptions struct {
	to     string
	tone   string
	engine string
}

func newTranslateCmd(opts *globalOptions) *cobra.Command {
	tOpts := &translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate text once with the configured engine",
		Long: `Translate text with the engine from config.yaml and the API key from
the environment (ZHIPU_API_KEY, OPENAI_API_KEY or FLOATRANS_API_KEY, or a
.env file next to config.yaml). With no arguments, or "-", the text is
read from stdin.`,
		Example: `  floatransctl translate --to EN --tone Formal 你好
  echo "good morning" | floatransctl translate --to JA`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textFromArgs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			cfg, path := opts.loadConfig()
			out, err := runTranslate(cmd.Context(), cfg, path, tOpts, text)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVar(&tOpts.to, "to", "", "target language code (default from config)")
	cmd.Flags().StringVar(&tOpts.tone, "tone", "", "tone: Formal, Casual, Academic or Creative (default from config)")
	cmd.Flags().StringVar(&tOpts.engine, "engine", "", "engine override: zhipu, openai or stub")
	return cmd
}

func runTranslate(ctx context.Context, cfg config.Config, configPath string, opts *translateOptions, text string) (string, error) {
	if e := strings.TrimSpace(opts.engine); e != "" {
		cfg.Engine = strings.ToLower(e)
	}
	tone, err := resolveTone(opts.tone, cfg.Tone)
	if err != nil {
		return "", err
	}
	target := strings.ToUpper(strings.TrimSpace(opts.to))
	if target == "" {
		target = strings.ToUpper(cfg.TargetLang)
	}

	creds, err := loadCredentialsFn(filepath.Dir(configPath))
	if err != nil {
		return "", fmt.Errorf("load credentials: %w", err)
	}
	tr, err := newTranslatorFn(config.TranslateSettings(cfg, creds))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()
	return tr.Translate(ctx, text, target, tone)
}

// resolveTone matches flag case-insensitively against the known tones, or
// returns fallback when flag is empty.
func resolveTone(flag, fallback string) (string, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return fallback, nil
	}
	idx := slices.IndexFunc(translator.Tones, func(t string) bool {
		return strings.EqualFold(t, flag)
	})
	if idx < 0 {
		return "", fmt.Errorf("%w: %q (want one of %s)", translator.ErrUnknownTone, flag, strings.Join(translator.Tones, ", "))
	}
	return translator.Tones[idx], nil
}
