package generator

import "strings"

// ExtractCodeBlocks returns the bodies of the ```lang fenced blocks in body,
// in order. Every contained line keeps one trailing newline. A block that is
// never closed is dropped.
func ExtractCodeBlocks(body, lang string) []string {
	open := "```" + lang
	var blocks []string
	var current strings.Builder
	inBlock := false

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimLeft(line, " \t")
		switch {
		case strings.HasPrefix(trimmed, open):
			inBlock = true
			current.Reset()
		case inBlock && strings.HasPrefix(trimmed, "```"):
			inBlock = false
			blocks = append(blocks, current.String())
		case inBlock:
			current.WriteString(line)
			current.WriteByte('\n')
		}
	}
	return blocks
}

// Payload is the code carried by body: its fenced blocks joined by a
// newline, or the whole trimmed body when it has none.
func Payload(body, lang string) string {
	blocks := ExtractCodeBlocks(body, lang)
	if len(blocks) == 0 {
		return strings.TrimSpace(body)
	}
	return strings.Join(blocks, "\n")
}
