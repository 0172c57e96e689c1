package embedding

import "testing"

func TestMeanPool(t *testing.T) {
	hidden := []float32{
		1, 2, // token 0
		3, 4, // token 1
		100, 100, // token 2 (padding)
	}
	got := meanPool(hidden, []int64{1, 1, 0}, 2)
	if got[0] != 2 || got[1] != 3 {
		t.Errorf("meanPool = %v, want [2 3]", got)
	}
}

func TestMeanPool_NoAttendedTokens(t *testing.T) {
	got := meanPool([]float32{1, 2}, []int64{0}, 2)
	if got[0] != 0 || got[1] != 0 {
		t.Errorf("meanPool with empty mask = %v, want zeros", got)
	}
}

func TestONNXOptions_applyDefaults(t *testing.T) {
	var o ONNXOptions
	o.applyDefaults()
	if o.Dimensions != 384 || o.MaxTokens != 256 || o.Pooling != PoolingMean || o.OutputName != "last_hidden_state" {
		t.Errorf("defaults: %+v", o)
	}
	if _, ok := o.Tokenizer.(*SimpleTokenizer); !ok {
		t.Errorf("default tokenizer: %T", o.Tokenizer)
	}
}
