package usecase

import (
	"encoding/json"
	"strings"

	"github.com/graymont/bidpipe/internal/core/domain"
)

// ExtractJSONPayload pulls the JSON body out of free-form model text:
// a fenced code block first, then the span between the first "{" and
// the last "}". Returns "" when neither is present.
func ExtractJSONPayload(raw string) string {
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		rest := raw[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		// Truncated before the closing fence.
		return strings.TrimSpace(rest)
	}
	if idx := strings.Index(raw, "```"); idx >= 0 {
		rest := raw[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate := strings.TrimSpace(rest[:end])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}
	start := strings.Index(raw, "{")
	if start < 0 {
		return ""
	}
	if end := strings.LastIndex(raw, "}"); end > start {
		return raw[start : end+1]
	}
	return strings.TrimSpace(raw[start:])
}

type frameState int

const (
	objectWantKey frameState = iota
	objectAfterKey
	objectWantValue
	objectAfterValue
	arrayWantValue
	arrayAfterValue
)

type frame struct {
	opener byte
	state  frameState
}

// RepairJSON attempts structural repair of truncated JSON: it cuts the
// text back to the last position where every open container could be
// closed legally, drops the dangling incomplete fragment, and appends
// the missing closing brackets and braces. The second return reports
// whether a candidate repair was produced.
func RepairJSON(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return "", false
	}

	var stack []frame
	lastGood := -1
	var lastGoodStack []byte

	inString := false
	escaped := false

	markValueDone := func(pos int) {
		if len(stack) == 0 {
			lastGood = pos + 1
			lastGoodStack = nil
			return
		}
		top := &stack[len(stack)-1]
		switch top.opener {
		case '{':
			top.state = objectAfterValue
		case '[':
			top.state = arrayAfterValue
		}
		lastGood = pos + 1
		lastGoodStack = lastGoodStack[:0]
		for _, f := range stack {
			lastGoodStack = append(lastGoodStack, f.opener)
		}
	}

	// Bare numbers and literals complete at a delimiter, so track the
	// index where the current scalar token started.
	scalarStart := -1
	flushScalar := func(end int) {
		if scalarStart >= 0 {
			markValueDone(end - 1)
			scalarStart = -1
		}
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
				if len(stack) > 0 && stack[len(stack)-1].opener == '{' && stack[len(stack)-1].state == objectWantKey {
					stack[len(stack)-1].state = objectAfterKey
				} else {
					markValueDone(i)
				}
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{', '[':
			flushScalar(i)
			if len(stack) > 0 {
				top := &stack[len(stack)-1]
				if top.opener == '{' {
					top.state = objectWantValue
				}
			}
			st := objectWantKey
			if ch == '[' {
				st = arrayWantValue
			}
			stack = append(stack, frame{opener: ch, state: st})
		case '}', ']':
			flushScalar(i)
			if len(stack) == 0 {
				return "", false
			}
			stack = stack[:len(stack)-1]
			markValueDone(i)
		case ':':
			if len(stack) > 0 && stack[len(stack)-1].opener == '{' {
				stack[len(stack)-1].state = objectWantValue
			}
		case ',':
			flushScalar(i)
			if len(stack) > 0 {
				top := &stack[len(stack)-1]
				if top.opener == '{' {
					top.state = objectWantKey
				} else {
					top.state = arrayWantValue
				}
			}
		case ' ', '\t', '\n', '\r':
			flushScalar(i)
		default:
			if scalarStart < 0 {
				scalarStart = i
			}
		}
	}

	if !inString && scalarStart >= 0 {
		// A trailing number or literal may itself be truncated; treat
		// it as incomplete rather than guessing.
		candidate := s[scalarStart:]
		if candidate == "true" || candidate == "false" || candidate == "null" || isCompleteNumber(candidate) {
			markValueDone(len(s) - 1)
		}
	}

	if lastGood < 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteString(s[:lastGood])
	for i := len(lastGoodStack) - 1; i >= 0; i-- {
		if lastGoodStack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String(), true
}

func isCompleteNumber(s string) bool {
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	if last < '0' || last > '9' {
		return false
	}
	var v json.Number
	return json.Unmarshal([]byte(s), &v) == nil
}

// ParseExtractionResponse turns raw model text into a strict
// ExtractionResult. It never returns an error: when extraction,
// repair, and envelope validation all fail, the raw text is preserved
// in a low-confidence empty result.
func ParseExtractionResponse(raw string, kind domain.ResponseKind) *domain.ExtractionResult {
	payload := ExtractJSONPayload(raw)
	if payload != "" {
		if result, ok := decodeEnvelope(payload, kind); ok {
			result.RawText = raw
			return result
		}
		if repaired, ok := RepairJSON(payload); ok {
			if result, ok := decodeEnvelope(repaired, kind); ok {
				result.RawText = raw
				result.Repaired = true
				return result
			}
		}
	}

	return &domain.ExtractionResult{
		Packages:   nil,
		Confidence: domain.ConfidenceLow,
		RawText:    raw,
	}
}
