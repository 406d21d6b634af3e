package inspection

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// parseVisionResult decodes vision stage output. The vision and text stages
// parse strictly: the model is instructed to return bare JSON, and anything
// else counts against the retry budget.
func parseVisionResult(text string) (*VisionResult, error) {
	var res VisionResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return nil, &ParseError{Stage: "vision", Err: err}
	}
	if err := res.Validate(); err != nil {
		return nil, &ParseError{Stage: "vision", Err: err}
	}
	return &res, nil
}

func parseTextResult(text string) (*TextResult, error) {
	var res TextResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return nil, &ParseError{Stage: "text", Err: err}
	}
	if err := res.Validate(); err != nil {
		return nil, &ParseError{Stage: "text", Err: err}
	}
	return &res, nil
}

// parsePricingResult decodes pricing stage output tolerantly: strict JSON
// first, then the first balanced brace-delimited block in the text, then a
// repaired version of that block. Every path must pass schema validation;
// unvalidated structure is never trusted.
func parsePricingResult(text string) (*PricingResult, error) {
	var res PricingResult
	if err := json.Unmarshal([]byte(text), &res); err == nil {
		if verr := res.Validate(); verr != nil {
			return nil, &ParseError{Stage: "pricing", Err: verr}
		}
		return &res, nil
	}

	block, ok := firstJSONBlock(text)
	if !ok {
		return nil, &ParseError{Stage: "pricing", Err: fmt.Errorf("no JSON object found in response")}
	}

	if err := json.Unmarshal([]byte(block), &res); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(block)
		if rerr != nil {
			return nil, &ParseError{Stage: "pricing", Err: fmt.Errorf("decode failed: %v (repair: %v)", err, rerr)}
		}
		res = PricingResult{}
		if err := json.Unmarshal([]byte(repaired), &res); err != nil {
			return nil, &ParseError{Stage: "pricing", Err: err}
		}
	}

	if err := res.Validate(); err != nil {
		return nil, &ParseError{Stage: "pricing", Err: err}
	}
	return &res, nil
}

// firstJSONBlock returns the first balanced brace-delimited block in text.
// Braces inside JSON strings do not count toward nesting.
func firstJSONBlock(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
