package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/thywilljoshua/scholar-refine/internal/ai"
	"github.com/thywilljoshua/scholar-refine/internal/intake"
	"github.com/thywilljoshua/scholar-refine/internal/render"
)

type refineOutput struct {
	Original string       `json:"original"`
	Refined  string       `json:"refined"`
	Segments []ai.Segment `json:"segments"`
}

func refineCmd() *cobra.Command {
	var pdfs []string
	var instruction string
	var asJSON bool
	var noColor bool

	cmd := &cobra.Command{
		Use:   "refine --pdf <file> [--pdf <file>...] <sentence>",
		Short: "Refine one sentence against the given PDFs and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			sentence := strings.Join(args, " ")
			if strings.TrimSpace(sentence) == "" {
				return errors.New("sentence is blank")
			}

			var list intake.List
			for _, p := range pdfs {
				d, err := intake.FromPath(p)
				if err != nil {
					return err
				}
				_, rejected := list.Add(d)
				for _, r := range rejected {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: not a PDF (%s)\n", r.Name, r.MediaType)
				}
			}
			if list.Len() == 0 {
				return errors.New("at least one PDF is required (--pdf)")
			}
			if cfg.APIKey == "" {
				return errors.New("no API key configured (set API_KEY or GEMINI_API_KEY, or pass --api-key)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if cfg.RequestTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()
			}

			refiner, err := newRefiner(ctx, cfg, log)
			if err != nil {
				return err
			}
			res, err := refiner.Refine(ctx, list.Documents(), sentence, instruction)
			if err != nil {
				log.Debug("refinement failed", "kind", ai.KindOf(err), "error", err)
				return errors.New(ai.UserMessage(err))
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, sentence, res)
			}
			fmt.Fprintf(out, "Original:\n  %s\n\n", sentence)
			return render.WriteText(out, render.Build(res), !noColor && isTerminal(out))
		},
	}
	cmd.Flags().StringArrayVar(&pdfs, "pdf", nil, "reference PDF (repeatable)")
	cmd.Flags().StringVarP(&instruction, "instruction", "i", "", "optional refinement instruction")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the segments as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colours")
	return cmd
}

func writeJSON(w io.Writer, sentence string, res ai.RefinementResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(refineOutput{
		Original: sentence,
		Refined:  render.Reconstruct(res),
		Segments: res.Segments,
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
