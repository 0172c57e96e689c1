package embedding

import "strings"

// BERT special token IDs shared by the MiniLM family.
const (
	clsTokenID = 101
	sepTokenID = 102
)

// Encoding is a tokenized text padded to a fixed length.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (Encoding, error)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs. It is
// used when a model directory ships no tokenizer.json.
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (Encoding, error) {
	words := strings.Fields(text)
	enc := newEncoding(maxTokens)
	maxTokens = len(enc.InputIDs)

	enc.InputIDs[0] = clsTokenID
	enc.AttentionMask[0] = 1

	pos := 1
	for _, word := range words {
		if pos >= maxTokens-1 {
			break
		}
		enc.InputIDs[pos] = int64(HashString(strings.ToLower(word)) % 30000)
		enc.AttentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		enc.InputIDs[pos] = sepTokenID
		enc.AttentionMask[pos] = 1
	}
	return enc, nil
}

func newEncoding(maxTokens int) Encoding {
	if maxTokens <= 1 {
		maxTokens = 256
	}
	return Encoding{
		InputIDs:      make([]int64, maxTokens),
		AttentionMask: make([]int64, maxTokens),
		TokenTypeIDs:  make([]int64, maxTokens),
	}
}

// HashString returns a deterministic non-negative hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	if h < 0 { // math.MinInt
		h = 0
	}
	return h
}
