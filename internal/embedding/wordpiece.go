package embedding

import (
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// WordPieceTokenizer wraps a Hugging Face tokenizer.json, as exported with
// sentence-transformers models.
type WordPieceTokenizer struct {
	tk *tokenizer.Tokenizer
	mu sync.Mutex
}

// NewWordPieceTokenizer loads the tokenizer definition at path.
func NewWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", path, err)
	}
	return &WordPieceTokenizer{tk: tk}, nil
}

// Tokenize encodes text with special tokens and pads or truncates to maxTokens.
// Truncation keeps the trailing [SEP].
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (Encoding, error) {
	t.mu.Lock()
	en, err := t.tk.EncodeSingle(text, true)
	t.mu.Unlock()
	if err != nil {
		return Encoding{}, fmt.Errorf("tokenize: %w", err)
	}

	enc := newEncoding(maxTokens)
	maxTokens = len(enc.InputIDs)
	n := len(en.Ids)
	truncated := n > maxTokens
	if truncated {
		n = maxTokens
	}
	for i := 0; i < n; i++ {
		enc.InputIDs[i] = int64(en.Ids[i])
		enc.AttentionMask[i] = 1
		if i < len(en.TypeIds) {
			enc.TokenTypeIDs[i] = int64(en.TypeIds[i])
		}
	}
	if truncated {
		enc.InputIDs[n-1] = int64(en.Ids[len(en.Ids)-1])
	}
	return enc, nil
}
