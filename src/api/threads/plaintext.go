package threads

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// quillDelta is the subset of the rich-text delta format the forum
// stores: an ops list whose string inserts carry the visible text.
type quillDelta struct {
	Ops []struct {
		Insert interface{} `json:"insert"`
	} `json:"ops"`
}

// DecodeBody reverses the percent-encoding applied to stored bodies.
// Undecodable input is returned as is.
func DecodeBody(body string) string {
	decoded, err := url.PathUnescape(body)
	if err != nil {
		return body
	}
	return decoded
}

// RenderPlaintext produces the plaintext rendering of a percent-encoded
// rich-text body. Bodies that are not valid deltas render as their
// decoded text.
func RenderPlaintext(policy *bluemonday.Policy, body string) string {
	decoded := DecodeBody(body)
	if text, ok := renderDeltaToText(decoded); ok {
		return policy.Sanitize(text)
	}
	return policy.Sanitize(decoded)
}

func renderDeltaToText(decoded string) (string, bool) {
	var delta quillDelta
	if err := json.Unmarshal([]byte(decoded), &delta); err != nil {
		return "", false
	}
	if len(delta.Ops) == 0 {
		return "", false
	}

	var b strings.Builder
	for _, op := range delta.Ops {
		if s, ok := op.Insert.(string); ok {
			b.WriteString(s)
		}
	}
	return b.String(), true
}
