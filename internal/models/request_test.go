package models

import (
	"encoding/json"
	"testing"
)

func TestParseMaxScore(t *testing.T) {
	num := func(s string) *json.Number {
		n := json.Number(s)
		return &n
	}
	tests := []struct {
		name string
		in   *json.Number
		want int
	}{
		{"absent", nil, DefaultMaxScore},
		{"integer", num("20"), 20},
		{"float rounds", num("20.6"), 21},
		{"zero defaults", num("0"), DefaultMaxScore},
		{"negative defaults", num("-5"), DefaultMaxScore},
		{"not a number", num("abc"), DefaultMaxScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseMaxScore(tt.in); got != tt.want {
				t.Errorf("ParseMaxScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecodeBatchAnswer(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ScoringRequest
		wantErr bool
	}{
		{
			name: "complete item",
			raw:  `{"question_id":"q1","key_answer":"k","student_answer":"s","max_score":20}`,
			want: ScoringRequest{QuestionID: "q1", KeyAnswer: "k", StudentAnswer: "s", MaxScore: 20},
		},
		{
			name: "missing fields get defaults",
			raw:  `{"question_id":"q2"}`,
			want: ScoringRequest{QuestionID: "q2", MaxScore: DefaultMaxScore},
		},
		{
			name: "numeric question id",
			raw:  `{"question_id":7,"key_answer":"k"}`,
			want: ScoringRequest{QuestionID: "7", KeyAnswer: "k", MaxScore: DefaultMaxScore},
		},
		{
			name:    "wrong type keeps other fields",
			raw:     `{"question_id":"q3","key_answer":42,"student_answer":"s","max_score":10}`,
			want:    ScoringRequest{QuestionID: "q3", StudentAnswer: "s", MaxScore: 10},
			wantErr: true,
		},
		{
			name:    "invalid number before answers keeps answers",
			raw:     `{"question_id":"q1","max_score":"abc","key_answer":"k","student_answer":"s"}`,
			want:    ScoringRequest{QuestionID: "q1", KeyAnswer: "k", StudentAnswer: "s", MaxScore: DefaultMaxScore},
			wantErr: true,
		},
		{
			name:    "array max score keeps answers",
			raw:     `{"max_score":[1],"key_answer":"k","student_answer":"s"}`,
			want:    ScoringRequest{KeyAnswer: "k", StudentAnswer: "s", MaxScore: DefaultMaxScore},
			wantErr: true,
		},
		{
			name:    "bad question id keeps answers",
			raw:     `{"question_id":{"x":1},"key_answer":"k","student_answer":"s","max_score":5}`,
			want:    ScoringRequest{KeyAnswer: "k", StudentAnswer: "s", MaxScore: 5},
			wantErr: true,
		},
		{
			name: "numeric string max score",
			raw:  `{"key_answer":"k","student_answer":"s","max_score":"20"}`,
			want: ScoringRequest{KeyAnswer: "k", StudentAnswer: "s", MaxScore: 20},
		},
		{
			name: "null fields are absent",
			raw:  `{"question_id":null,"key_answer":null,"student_answer":"s","max_score":null}`,
			want: ScoringRequest{StudentAnswer: "s", MaxScore: DefaultMaxScore},
		},
		{
			name: "null item",
			raw:  `null`,
			want: ScoringRequest{MaxScore: DefaultMaxScore},
		},
		{
			name:    "non-object item",
			raw:     `"oops"`,
			want:    ScoringRequest{MaxScore: DefaultMaxScore},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBatchAnswer(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeBatchAnswer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DecodeBatchAnswer() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSingleScoreRequest_ToScoringRequest(t *testing.T) {
	var req SingleScoreRequest
	if err := json.Unmarshal([]byte(`{"key_answer":"key"}`), &req); err != nil {
		t.Fatal(err)
	}
	got := req.ToScoringRequest()
	if got.KeyAnswer != "key" || got.StudentAnswer != "" || got.MaxScore != DefaultMaxScore {
		t.Errorf("ToScoringRequest() = %+v", got)
	}
}
