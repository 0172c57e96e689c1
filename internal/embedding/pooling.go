package embedding

// Pooling strategies for the ONNX output.
const (
	// PoolingMean averages last_hidden_state over attended tokens (sentence-transformers default).
	PoolingMean = "mean"
	// PoolingNone reads an already pooled [1, dims] output such as sentence_embedding.
	PoolingNone = "none"
)

// ONNXOptions configures NewONNXEmbedder.
type ONNXOptions struct {
	ModelPath         string
	Tokenizer         Tokenizer
	Dimensions        int
	MaxTokens         int
	CacheSize         int
	OutputName        string
	Pooling           string
	SharedLibraryPath string
}

func (o *ONNXOptions) applyDefaults() {
	if o.Dimensions <= 0 {
		o.Dimensions = 384
	}
	if o.MaxTokens <= 1 {
		o.MaxTokens = 256
	}
	if o.OutputName == "" {
		o.OutputName = "last_hidden_state"
	}
	if o.Pooling == "" {
		o.Pooling = PoolingMean
	}
	if o.Tokenizer == nil {
		o.Tokenizer = &SimpleTokenizer{}
	}
}

// meanPool averages token vectors of a [tokens, dims] row-major matrix,
// counting only positions where mask is set.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		start := t * dims
		if start+dims > len(hidden) {
			break
		}
		for j := 0; j < dims; j++ {
			out[j] += hidden[start+j]
		}
		count++
	}
	if count == 0 {
		return out
	}
	for j := range out {
		out[j] /= count
	}
	return out
}
