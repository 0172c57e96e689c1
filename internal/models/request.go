// Package models defines the request and response shapes of the scoring service.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultMaxScore is used when a request carries no usable max_score.
const DefaultMaxScore = 100

// ScoringRequest is one answer to score against its key answer.
type ScoringRequest struct {
	QuestionID    string `json:"question_id"`
	KeyAnswer     string `json:"key_answer"`
	StudentAnswer string `json:"student_answer"`
	MaxScore      int    `json:"max_score"`
}

// Normalize fills defaults in place: a non-positive MaxScore becomes DefaultMaxScore.
func (r *ScoringRequest) Normalize() {
	if r.MaxScore <= 0 {
		r.MaxScore = DefaultMaxScore
	}
}

// SingleScoreRequest is the body of the single-answer endpoint. Pointers
// distinguish a missing field from an empty one.
type SingleScoreRequest struct {
	KeyAnswer     *string      `json:"key_answer" validate:"required"`
	StudentAnswer *string      `json:"student_answer"`
	MaxScore      *json.Number `json:"max_score"`
}

// ToScoringRequest converts the wire request, applying defaults.
func (r *SingleScoreRequest) ToScoringRequest() ScoringRequest {
	req := ScoringRequest{
		KeyAnswer:     deref(r.KeyAnswer),
		StudentAnswer: deref(r.StudentAnswer),
		MaxScore:      ParseMaxScore(r.MaxScore),
	}
	req.Normalize()
	return req
}

// BatchScoreRequest is the body of the batch endpoint. Items stay raw so that a
// malformed item degrades to defaults instead of failing the whole exam.
type BatchScoreRequest struct {
	Answers *[]json.RawMessage `json:"answers" validate:"required"`
}

// DecodeBatchAnswer decodes one batch item into a ScoringRequest. Each field is
// decoded on its own: a malformed field keeps its default and the others are
// still used. The returned error lists the malformed fields and is
// informational only.
func DecodeBatchAnswer(raw json.RawMessage) (ScoringRequest, error) {
	req := ScoringRequest{MaxScore: DefaultMaxScore}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return req, fmt.Errorf("decode answer: %w", err)
	}

	var errs []error
	var id FlexString
	if err := decodeField(fields, "question_id", &id); err != nil {
		errs = append(errs, err)
	} else {
		req.QuestionID = string(id)
	}
	var key, student string
	if err := decodeField(fields, "key_answer", &key); err != nil {
		errs = append(errs, err)
	} else {
		req.KeyAnswer = key
	}
	if err := decodeField(fields, "student_answer", &student); err != nil {
		errs = append(errs, err)
	} else {
		req.StudentAnswer = student
	}
	var maxScore *json.Number
	if err := decodeField(fields, "max_score", &maxScore); err != nil {
		errs = append(errs, err)
	} else {
		req.MaxScore = ParseMaxScore(maxScore)
	}
	if len(errs) > 0 {
		return req, fmt.Errorf("decode answer: %w", errors.Join(errs...))
	}
	return req, nil
}

// decodeField unmarshals fields[name] into v. An absent field is not an error
// and leaves v untouched.
func decodeField(fields map[string]json.RawMessage, name string, v any) error {
	data, ok := fields[name]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// ParseMaxScore returns n as a positive integer, or DefaultMaxScore when n is
// absent, not a number, or not positive. Fractional values are rounded.
func ParseMaxScore(n *json.Number) int {
	if n == nil {
		return DefaultMaxScore
	}
	if v, err := n.Int64(); err == nil {
		if v > 0 && v <= math.MaxInt32 {
			return int(v)
		}
		return DefaultMaxScore
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f < 0.5 || f > math.MaxInt32 {
		return DefaultMaxScore
	}
	return int(math.Round(f))
}

// FlexString accepts a JSON string or number. Clients send question IDs both ways.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question_id must be a string or number: %w", err)
	}
	*s = FlexString(n.String())
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.Clone(*s)
}
