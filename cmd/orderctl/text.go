package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [text]",
	Short: "Remove repeated words and segments from a transcript",
	Long: `Clean runs repetition suppression on the given text. With no argument
the text is read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

var orderCmd = &cobra.Command{
	Use:   "order [text]",
	Short: "Extract a structured order from a transcript",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runOrder,
}

func init() {
	rootCmd.AddCommand(cleanCmd, orderCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	text, err := inputText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	res, err := newClient().Clean(ctx, text)
	if err != nil {
		return err
	}
	logger.Debug().
		Int("wordsDropped", res.WordsDropped).
		Int("segmentsDropped", res.SegmentsDropped).
		Str("language", res.Language.Code()).
		Msg("Cleaned")
	return printResult(cmd.OutOrStdout(), res, res.CleanedText)
}

func runOrder(cmd *cobra.Command, args []string) error {
	text, err := inputText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	res, err := newClient().ExtractOrder(ctx, text)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res, res.Rendered)
}

func inputText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if f, ok := stdin.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			return "", fmt.Errorf("no text given and stdin is a terminal")
		}
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
