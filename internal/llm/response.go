package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNoJSONArray = errors.New("no JSON array in model response")

	fencedBlockRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	bareArrayRe   = regexp.MustCompile(`(?s)\[.*\]`)
)

type rawClassification struct {
	TransactionID   string     `json:"transaction_id"`
	CategoryID      string     `json:"category_id"`
	ConfidenceScore flexNumber `json:"confidence_score"`
	Reasoning       string     `json:"reasoning"`
}

// flexNumber accepts 0.9 as well as "0.9"; models are not consistent.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("confidence %q: %w", s, err)
		}
		*n = flexNumber(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}

// parseClassifications pulls the JSON array out of a model reply. A fenced
// ```json block is preferred; otherwise the outermost [...] is used.
func parseClassifications(content string) ([]rawClassification, error) {
	payload := ""
	if m := fencedBlockRe.FindStringSubmatch(content); m != nil && strings.HasPrefix(strings.TrimSpace(m[1]), "[") {
		payload = m[1]
	} else if m := bareArrayRe.FindString(content); m != "" {
		payload = m
	} else {
		return nil, ErrNoJSONArray
	}

	var out []rawClassification
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &out); err != nil {
		return nil, fmt.Errorf("failed to decode classifications: %w", err)
	}
	return out, nil
}
