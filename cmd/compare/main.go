package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"chat-similarity/internal/app"
	"chat-similarity/internal/compare"
	"chat-similarity/internal/corpus"
	"chat-similarity/internal/quantize"
	"chat-similarity/internal/sealed"
)

const sealPreview = 8

type options struct {
	corpusPath string
	corpusID   string
	sealDemo   bool
	asJSON     bool
	purgeCache bool
}

type jsonOutput struct {
	Baseline          float64        `json:"baseline"`
	BaselineEstimated bool           `json:"baseline_estimated"`
	Scores            []corpus.Score `json:"scores"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "compare [text...]",
		Short: "Score a text against a stored chat corpus",
		Long: `Embeds the given text and every corpus entry, decorrelates them together
and prints a calibrated similarity percentage per entry.

Text is taken from the arguments, or read from stdin when none are given.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := app.BuildLocal()
			if err != nil {
				return err
			}
			if opts.corpusPath == "" {
				opts.corpusPath = deps.Config.CorpusPath
			}
			return run(cmd.Context(), deps, opts, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.corpusPath, "corpus", "", "corpus JSON file (default $CORPUS_PATH)")
	cmd.Flags().StringVar(&opts.corpusID, "corpus-id", "", "load the corpus from the store instead of a file")
	cmd.Flags().BoolVar(&opts.sealDemo, "seal-demo", false, "quantize the query embedding and round-trip it through encryption")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&opts.purgeCache, "purge-cache", false, "drop cached embeddings first, e.g. after changing EMBEDDING_MODEL; with no text, only purge")
	return cmd
}

func run(ctx context.Context, deps app.Deps, opts options, args []string, in io.Reader, out io.Writer) error {
	if opts.purgeCache {
		if err := deps.Cache.Purge(ctx); err != nil {
			return fmt.Errorf("purge embedding cache: %w", err)
		}
		deps.Log.Info("embedding cache purged")
		if len(args) == 0 {
			fmt.Fprintln(out, "Embedding cache purged.")
			return nil
		}
	}
	c, err := loadCorpus(ctx, deps, opts)
	if err != nil {
		return err
	}
	text, err := readInputText(args, in, out)
	if err != nil {
		return err
	}

	outcome, err := deps.Compare.Compare(ctx, text, c)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(jsonOutput{
			Baseline:          outcome.Baseline,
			BaselineEstimated: outcome.BaselineEstimated,
			Scores:            outcome.Scores,
		}); err != nil {
			return err
		}
	} else {
		printOutcome(out, outcome)
	}

	if opts.sealDemo {
		return sealDemo(out, deps.Log, outcome)
	}
	return nil
}

func loadCorpus(ctx context.Context, deps app.Deps, opts options) (corpus.Corpus, error) {
	if opts.corpusID == "" {
		return corpus.LoadFile(opts.corpusPath)
	}
	id, err := uuid.Parse(opts.corpusID)
	if err != nil {
		return corpus.Corpus{}, fmt.Errorf("invalid corpus id: %w", err)
	}
	if deps.Store == nil {
		return corpus.Corpus{}, errors.New("--corpus-id needs DB_URL")
	}
	c, err := deps.Store.GetCorpus(ctx, id)
	if err != nil {
		return corpus.Corpus{}, err
	}
	if len(c.Entries) == 0 {
		return corpus.Corpus{}, corpus.ErrEmptyCorpus
	}
	return c, nil
}

// readInputText joins args, or prompts for a single line on in.
func readInputText(args []string, in io.Reader, out io.Writer) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	fmt.Fprint(out, "Text to compare: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	text := strings.TrimSpace(line)
	if text == "" {
		return "", compare.ErrEmptyQuery
	}
	return text, nil
}

func printOutcome(out io.Writer, o compare.Outcome) {
	fmt.Fprintln(out, "\n=== Calibrated similarity ===")
	if o.BaselineEstimated {
		fmt.Fprintf(out, "Estimated unrelated baseline: cos ≈ %.3f\n", o.Baseline)
	} else {
		fmt.Fprintf(out, "Baseline not estimable, using fallback: cos = %.3f\n", o.Baseline)
	}
	for _, s := range o.Scores {
		fmt.Fprintf(out, "Chat #%02d [%s] -> %.2f%%\n", s.Index, s.Role, s.Percent)
	}
}

// sealDemo quantizes the raw query embedding, seals each component under a
// fresh key and opens it again.
func sealDemo(out io.Writer, log *slog.Logger, o compare.Outcome) error {
	keys, err := sealed.NewKeys()
	if err != nil {
		return err
	}
	q := quantize.QuantizeVector(o.QueryEmbedding)
	cts, err := sealed.Seal(keys, q)
	if err != nil {
		return err
	}
	opened, err := sealed.Open(keys, cts[:min(sealPreview, len(cts))])
	if err != nil {
		return err
	}
	log.Debug("seal demo complete", "components", len(cts))
	fmt.Fprintf(out, "\nQuantized query embedding (first %d) [u16]: %v\n", sealPreview, q[:min(sealPreview, len(q))])
	fmt.Fprintf(out, "Sealed and reopened       (first %d) [u16]: %v\n", sealPreview, opened)
	return nil
}
