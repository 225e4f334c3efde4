package generator

import (
	"bytes"
	"encoding/json"
	"strings"
)

const redacted = "***REDACTED***"

// minSecretLen is the shortest credential masked by plain substitution;
// shorter values would match unrelated text.
const minSecretLen = 8

// sensitiveFields are JSON members whose values never reach a diagnostic.
var sensitiveFields = toLowerSet([]string{
	"api_key",
	"apikey",
	"authorization",
	"access_token",
	"refresh_token",
	"token",
	"secret",
	"password",
})

// redactBody masks secret and the values of sensitive JSON members in a
// response body that is about to be persisted. Everything else is kept byte
// for byte.
func redactBody(body []byte, secret string) string {
	data := body
	if len(secret) >= minSecretLen {
		data = bytes.ReplaceAll(data, []byte(secret), []byte(redacted))
	}
	if !json.Valid(data) {
		return string(data)
	}
	spans := sensitiveSpans(data)
	if len(spans) == 0 {
		return string(data)
	}
	quoted, _ := json.Marshal(redacted)
	var b strings.Builder
	var last int64
	for _, s := range spans {
		b.Write(data[last:s[0]])
		b.Write(quoted)
		last = s[1]
	}
	b.Write(data[last:])
	return b.String()
}

func toLowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, v := range items {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

// sensitiveSpans returns the byte ranges, in order, of the values of
// sensitive members anywhere in the JSON document data.
func sensitiveSpans(data []byte) [][2]int64 {
	type frame struct {
		object  bool
		wantKey bool
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var stack []frame
	var spans [][2]int64

	valueDone := func() {
		if n := len(stack); n > 0 && stack[n-1].object {
			stack[n-1].wantKey = true
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return spans
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				stack = append(stack, frame{object: d == '{', wantKey: d == '{'})
			case '}', ']':
				stack = stack[:len(stack)-1]
				valueDone()
			}
			continue
		}
		n := len(stack)
		if n == 0 || !stack[n-1].object || !stack[n-1].wantKey {
			valueDone()
			continue
		}
		stack[n-1].wantKey = false
		key, _ := tok.(string)
		if _, ok := sensitiveFields[strings.ToLower(key)]; !ok {
			continue
		}
		start := dec.InputOffset()
		for start < int64(len(data)) && strings.IndexByte(" \t\r\n:", data[start]) >= 0 {
			start++
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return spans
		}
		var s string
		if json.Unmarshal(raw, &s) != nil || s != redacted {
			spans = append(spans, [2]int64{start, dec.InputOffset()})
		}
		valueDone()
	}
}
