package relay

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fpt/polyglot/pkg/relay/domain"
)

// TranslationStatus is the settled outcome of one per-destination translation.
type TranslationStatus string

const (
	TranslationOK             TranslationStatus = "ok"
	TranslationUntranslatable TranslationStatus = "untranslatable"
	TranslationFailed         TranslationStatus = "failed"
)

// Translation is the result for one target language.
type Translation struct {
	Target Tag
	Text   string
	Status TranslationStatus
	Err    error
}

// Tag is re-exported for callers that only deal with the relay package.
type Tag = domain.Tag

// TranslateAll translates text into every target concurrently and waits for
// all calls to settle. Results keep the order of targets. A failing target
// never cancels the others.
func TranslateAll(ctx context.Context, tr domain.Translator, text string, source Tag, targets []Tag) []Translation {
	results := make([]Translation, len(targets))
	masked := maskTokens(text)

	var g errgroup.Group
	for i, target := range targets {
		g.Go(func() error {
			results[i] = translateOne(ctx, tr, masked, source, target)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func translateOne(ctx context.Context, tr domain.Translator, masked maskedText, source, target Tag) (res Translation) {
	res.Target = target
	defer func() {
		if r := recover(); r != nil {
			res.Status = TranslationFailed
			res.Err = errors.Errorf("translator panic: %v", r)
		}
	}()

	out, err := tr.Translate(ctx, masked.Text, source, target)
	switch {
	case errors.Is(err, domain.ErrUntranslatable):
		res.Status = TranslationUntranslatable
	case err != nil:
		res.Status = TranslationFailed
		res.Err = err
	case strings.TrimSpace(out) == "":
		// An empty answer carries nothing worth posting.
		res.Status = TranslationUntranslatable
	default:
		res.Status = TranslationOK
		res.Text = masked.Restore(strings.TrimSpace(out))
	}
	return res
}
