// Package directive reads the `//handoff:` option directives of a Go source file.
//
// A directive carries a sequence of options separated by commas or semicolons:
//
//	//handoff: model = "o1-preview"; seed = 20; max_completion_tokens = 4096
//	//handoff: "Implement fib so that fib(1) == fib(2) == 1."
//
// A bare string literal is free-text guidance appended to the instruction
// message. Keys not listed in Options are rejected.
package directive

import (
	"fmt"
	"go/scanner"
	"go/token"
	"math"
	"strconv"
	"strings"
)

// MaxSeed is the largest seed the completion service accepts.
const MaxSeed uint64 = math.MaxInt64

// Options is the typed option bag of a directive.
type Options struct {
	Model               string
	Seed                *uint64
	MaxCompletionTokens *uint64
	Prompt              string
}

// IsZero reports whether no option was set.
func (o Options) IsZero() bool {
	return o.Model == "" && o.Seed == nil && o.MaxCompletionTokens == nil && o.Prompt == ""
}

// Merge returns o with every option set in over replacing its counterpart.
func (o Options) Merge(over Options) Options {
	if over.Model != "" {
		o.Model = over.Model
	}
	if over.Seed != nil {
		o.Seed = over.Seed
	}
	if over.MaxCompletionTokens != nil {
		o.MaxCompletionTokens = over.MaxCompletionTokens
	}
	if over.Prompt != "" {
		o.Prompt = over.Prompt
	}
	return o
}

// String renders o in directive syntax; Parse(o.String()) yields o.
func (o Options) String() string {
	var parts []string
	if o.Model != "" {
		parts = append(parts, "model = "+strconv.Quote(o.Model))
	}
	if o.Seed != nil {
		parts = append(parts, "seed = "+strconv.FormatUint(*o.Seed, 10))
	}
	if o.MaxCompletionTokens != nil {
		parts = append(parts, "max_completion_tokens = "+strconv.FormatUint(*o.MaxCompletionTokens, 10))
	}
	if o.Prompt != "" {
		parts = append(parts, strconv.Quote(o.Prompt))
	}
	return strings.Join(parts, "; ")
}

// Parse parses the text following a directive prefix.
func Parse(src string) (Options, error) {
	p := newOptionParser(src)
	opts, err := p.parseOptions()
	if err != nil {
		return Options{}, err
	}
	if p.errs.Len() > 0 {
		return Options{}, p.errs.Err()
	}
	return opts, nil
}

type optionParser struct {
	file *token.File
	scan scanner.Scanner
	errs scanner.ErrorList

	pos token.Pos
	tok token.Token
	lit string
}

func newOptionParser(src string) *optionParser {
	p := &optionParser{}
	fset := token.NewFileSet()
	p.file = fset.AddFile("directive", -1, len(src))
	p.scan.Init(p.file, []byte(src), func(pos token.Position, msg string) {
		p.errs.Add(pos, msg)
	}, 0)
	p.next()
	return p
}

func (p *optionParser) next() {
	p.pos, p.tok, p.lit = p.scan.Scan()
}

func (p *optionParser) errorf(format string, args ...any) error {
	return p.errorAt(p.pos, format, args...)
}

func (p *optionParser) errorAt(at token.Pos, format string, args ...any) error {
	pos := p.file.Position(at)
	return fmt.Errorf("%d:%d: %s", pos.Line, pos.Column, fmt.Sprintf(format, args...))
}

func (p *optionParser) describe() string {
	if p.lit != "" && p.tok != token.SEMICOLON {
		return fmt.Sprintf("%s %s", p.tok, p.lit)
	}
	return p.tok.String()
}

func (p *optionParser) parseOptions() (Options, error) {
	var opts Options
	for p.tok != token.EOF {
		switch p.tok {
		case token.IDENT:
			if err := p.parseOption(&opts); err != nil {
				return opts, err
			}
		case token.STRING:
			s, err := p.parseString()
			if err != nil {
				return opts, err
			}
			if opts.Prompt != "" {
				opts.Prompt += "\n"
			}
			opts.Prompt += s
		case token.COMMA, token.SEMICOLON:
			// empty option
		default:
			return opts, p.errorf("expected option name or string literal, found %s", p.describe())
		}
		if p.tok == token.COMMA || p.tok == token.SEMICOLON {
			p.next()
		}
	}
	return opts, nil
}

func (p *optionParser) parseOption(opts *Options) error {
	name, namePos := p.lit, p.pos
	p.next()
	if p.tok != token.ASSIGN {
		return p.errorf("expected = after %s, found %s", name, p.describe())
	}
	p.next()
	switch name {
	case "model":
		s, err := p.parseString()
		if err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			return p.errorf("model cannot be empty")
		}
		opts.Model = s
	case "seed":
		n, err := p.parseUint(name)
		if err != nil {
			return err
		}
		if n > MaxSeed {
			return p.errorf("seed %d exceeds %d", n, MaxSeed)
		}
		opts.Seed = &n
	case "max_completion_tokens":
		n, err := p.parseUint(name)
		if err != nil {
			return err
		}
		opts.MaxCompletionTokens = &n
	default:
		return p.errorAt(namePos, "unknown option %q", name)
	}
	return nil
}

func (p *optionParser) parseString() (string, error) {
	if p.tok != token.STRING {
		return "", p.errorf("expected string literal, found %s", p.describe())
	}
	s, err := strconv.Unquote(p.lit)
	if err != nil {
		return "", p.errorf("invalid string literal %s", p.lit)
	}
	p.next()
	return s, nil
}

func (p *optionParser) parseUint(name string) (uint64, error) {
	if p.tok == token.SUB {
		return 0, p.errorf("%s must not be negative", name)
	}
	if p.tok != token.INT {
		return 0, p.errorf("expected integer for %s, found %s", name, p.describe())
	}
	n, err := strconv.ParseUint(p.lit, 0, 64)
	if err != nil {
		return 0, p.errorf("invalid integer %s for %s", p.lit, name)
	}
	p.next()
	return n, nil
}
