package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// decodeLenient parses model-produced JSON into v. Attempts, in order:
// 1. Strip a markdown code fence if the payload is wrapped in one
// 2. Standard JSON
// 3. JSON repair (unquoted keys, trailing commas, unclosed objects)
// 4. Hjson (most lenient)
func decodeLenient(payload []byte, v any) error {
	body := unfence(payload)
	if len(bytes.TrimSpace(body)) == 0 {
		return eris.Wrap(ErrMalformedPayload, "extract: empty payload")
	}

	if err := json.Unmarshal(body, v); err == nil {
		return nil
	}

	if repaired, err := jsonrepair.RepairJSON(string(body)); err == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return nil
		}
	}

	var generic any
	if err := hjson.Unmarshal(body, &generic); err == nil {
		if asJSON, err := json.Marshal(generic); err == nil {
			if err := json.Unmarshal(asJSON, v); err == nil {
				return nil
			}
		}
	}

	return eris.Wrapf(ErrMalformedPayload, "extract: all parsing strategies failed (%d bytes)", len(payload))
}

// unfence returns the body of the first fenced code block, preferring one
// tagged json. Payloads that are not markdown-wrapped are returned as is.
func unfence(payload []byte) []byte {
	if !bytes.Contains(payload, []byte("```")) {
		return payload
	}

	doc := goldmark.DefaultParser().Parse(text.NewReader(payload))

	var first, tagged []byte
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var buf bytes.Buffer
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(payload))
		}

		if first == nil {
			first = buf.Bytes()
		}
		if strings.EqualFold(string(block.Language(payload)), "json") {
			tagged = buf.Bytes()
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	switch {
	case tagged != nil:
		return tagged
	case first != nil:
		return first
	default:
		return payload
	}
}
