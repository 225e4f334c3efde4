package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCodeBlocksSingle(t *testing.T) {
	assert.Equal(t, []string{"foo\n"}, ExtractCodeBlocks("```go\nfoo\n```", "go"))
}

func TestExtractCodeBlocksNone(t *testing.T) {
	assert.Empty(t, ExtractCodeBlocks("plain text, no fences", "go"))
	assert.Equal(t, "plain text, no fences", Payload("  plain text, no fences\n\n", "go"))
}

func TestExtractCodeBlocksMultiple(t *testing.T) {
	body := "```go\na\n```\n```go\nb\n```"
	assert.Equal(t, []string{"a\n", "b\n"}, ExtractCodeBlocks(body, "go"))
	assert.Equal(t, "a\n\nb\n", Payload(body, "go"))
}

func TestExtractCodeBlocksWithProse(t *testing.T) {
	input := `
aaaa        
        
` + "```go" + `
func main() {
	println("Hello, world!")
}
` + "```" + `

bbbbb

  ` + "```go" + `
func hoge() {
	println("hoge")
}
` + "```" + `

cccccc`
	expected := []string{
		"func main() {\n\tprintln(\"Hello, world!\")\n}\n",
		"func hoge() {\n\tprintln(\"hoge\")\n}\n",
	}
	assert.Equal(t, expected, ExtractCodeBlocks(input, "go"))
}

func TestExtractCodeBlocksIgnoresOtherLanguages(t *testing.T) {
	body := "```sh\ngo test ./...\n```\n```go\nvar x = 1\n```\n"
	assert.Equal(t, []string{"var x = 1\n"}, ExtractCodeBlocks(body, "go"))
}

func TestExtractCodeBlocksUnterminatedDropped(t *testing.T) {
	body := "```go\na\n```\n```go\nnever closed\n"
	assert.Equal(t, []string{"a\n"}, ExtractCodeBlocks(body, "go"))
}

func TestExtractCodeBlocksCRLF(t *testing.T) {
	assert.Equal(t, []string{"x := 1\n"}, ExtractCodeBlocks("```go\r\nx := 1\r\n```\r\n", "go"))
}

func TestExtractCodeBlocksReopenRestarts(t *testing.T) {
	body := "```go\nstale\n```go\nfresh\n```"
	assert.Equal(t, []string{"fresh\n"}, ExtractCodeBlocks(body, "go"))
}
