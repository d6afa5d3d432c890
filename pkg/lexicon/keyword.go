package lexicon

import (
	"context"
	_ "embed"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/EternisAI/persona-blend/pkg/logging"
)

//go:embed default_lexicon.json
var defaultLexicon []byte

type prefixEntry struct {
	prefix     string
	categories []Category
}

// Keyword is an in-process dictionary classifier in the style of the Moral Foundations
// Dictionary: entries are whole words, or stems when they end in '*'.
type Keyword struct {
	exact    map[string][]Category
	prefixes []prefixEntry
	logger   *log.Logger
}

var _ Classifier = (*Keyword)(nil)

// NewKeyword builds a classifier from category -> entries.
func NewKeyword(dict map[Category][]string, logger *log.Logger) (*Keyword, error) {
	k := &Keyword{
		exact:  make(map[string][]Category),
		logger: logging.OrDiscard(logger),
	}
	byPrefix := make(map[string][]Category)

	cats := lo.Keys(dict)
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	for _, cat := range cats {
		if cat == "" {
			return nil, errors.New("lexicon has an empty category")
		}
		for _, raw := range dict[cat] {
			entry := strings.ToLower(strings.TrimSpace(raw))
			if entry == "" || entry == "*" {
				return nil, errors.Errorf("lexicon category %s has an empty entry", cat)
			}
			if stem, ok := strings.CutSuffix(entry, "*"); ok {
				byPrefix[stem] = append(byPrefix[stem], cat)
				continue
			}
			k.exact[entry] = append(k.exact[entry], cat)
		}
	}

	for stem, cs := range byPrefix {
		k.prefixes = append(k.prefixes, prefixEntry{prefix: stem, categories: cs})
	}
	sort.Slice(k.prefixes, func(i, j int) bool { return k.prefixes[i].prefix < k.prefixes[j].prefix })

	return k, nil
}

// LoadKeyword reads a JSON object of {"category": ["word", "stem*", ...]}.
func LoadKeyword(r io.Reader, logger *log.Logger) (*Keyword, error) {
	var dict map[Category][]string
	if err := json.NewDecoder(r).Decode(&dict); err != nil {
		return nil, errors.Wrap(err, "decode lexicon")
	}
	return NewKeyword(dict, logger)
}

// DefaultKeyword returns the classifier built from the embedded lexicon.
func DefaultKeyword(logger *log.Logger) (*Keyword, error) {
	return LoadKeyword(strings.NewReader(string(defaultLexicon)), logger)
}

func (k *Keyword) Classify(_ context.Context, text string) ([]Category, error) {
	tokens := lo.Uniq(tokenize(text))

	var found []Category
	for _, tok := range tokens {
		found = append(found, k.exact[tok]...)
		for _, p := range k.prefixes {
			if strings.HasPrefix(tok, p.prefix) {
				found = append(found, p.categories...)
			}
		}
	}

	out := Normalize(found)
	k.logger.Debug("Classified text", "tokens", len(tokens), "categories", out)
	return out, nil
}

// Size returns the number of exact and stem entries.
func (k *Keyword) Size() int {
	return len(k.exact) + len(k.prefixes)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}
