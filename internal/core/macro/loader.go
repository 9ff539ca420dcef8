package macro

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PachudermPack/UniMacro/internal/core/keycode"
)

// LoadResult is the outcome of reading a rule source. Problems holds one
// *ParseError per skipped line.
type LoadResult struct {
	Definitions []Definition
	Skipped     int
	Problems    []error
	Warnings    []string
}

// StripComment cuts a line at the first '#' or ';'. A backslash before either
// character keeps it literal.
func StripComment(line string) string {
	if !strings.ContainsAny(line, "#;") {
		return line
	}
	var b strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) && (line[i+1] == '#' || line[i+1] == ';') {
			b.WriteByte(line[i+1])
			i++
			continue
		}
		if c == '#' || c == ';' {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Load parses every rule line in r. Malformed lines are counted and recorded
// but never abort the load; only read errors are returned.
func (p *Parser) Load(r io.Reader) (*LoadResult, error) {
	result := &LoadResult{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := StripComment(scanner.Text())
		if lineNo == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		def, err := p.Parse(text)
		if err != nil {
			var parseErr *ParseError
			if errors.As(err, &parseErr) {
				parseErr.Line = lineNo
			}
			result.Skipped++
			result.Problems = append(result.Problems, err)
			continue
		}
		def.Line = lineNo

		if def.IgnoredInterval {
			result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: interval ignored on Bind rule", lineNo))
		}
		if _, ok := keycode.DetectCode(def.Trigger); !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: trigger %q can never fire", lineNo, def.TriggerName))
		}
		result.Definitions = append(result.Definitions, def)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return result, nil
}

// LoadFile opens path and parses it with Load.
func (p *Parser) LoadFile(path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rules: %w", err)
	}
	defer f.Close()
	return p.Load(f)
}
