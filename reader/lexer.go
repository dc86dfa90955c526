package reader

import (
	"bytes"
	"fmt"
	"strconv"

	"pdfarmor/ir/raw"
)

// lexer is a recursive-descent value parser over the whole input buffer.
// Positions are byte offsets; callers seek it explicitly.
type lexer struct {
	data []byte
	pos  int
}

func isWhitespace(c byte) bool {
	switch c {
	case 0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return isWhitespace(c)
}

func (lx *lexer) eof() bool { return lx.pos >= len(lx.data) }

func (lx *lexer) peek() byte {
	if lx.eof() {
		return 0
	}
	return lx.data[lx.pos]
}

func (lx *lexer) peekAt(off int) byte {
	if lx.pos+off >= len(lx.data) {
		return 0
	}
	return lx.data[lx.pos+off]
}

func (lx *lexer) skipWS() {
	for !lx.eof() {
		c := lx.data[lx.pos]
		if isWhitespace(c) {
			lx.pos++
			continue
		}
		if c == '%' {
			for !lx.eof() && lx.data[lx.pos] != '\n' && lx.data[lx.pos] != '\r' {
				lx.pos++
			}
			continue
		}
		return
	}
}

// keyword reads a bare keyword (obj, endobj, stream, trailer, ...).
func (lx *lexer) keyword() string {
	lx.skipWS()
	start := lx.pos
	for !lx.eof() && !isDelimiter(lx.data[lx.pos]) {
		lx.pos++
	}
	return string(lx.data[start:lx.pos])
}

// expect consumes the given keyword or fails.
func (lx *lexer) expect(kw string) error {
	if got := lx.keyword(); got != kw {
		return fmt.Errorf("expected %q, got %q", kw, got)
	}
	return nil
}

// value parses one PDF object starting at the current position.
// Indirect references ("n g R") are recognized by lookahead.
func (lx *lexer) value(depth int) (raw.Object, error) {
	if depth > maxParseDepth {
		return nil, fmt.Errorf("object nesting exceeds %d", maxParseDepth)
	}
	lx.skipWS()
	if lx.eof() {
		return nil, fmt.Errorf("unexpected end of input")
	}
	c := lx.peek()
	switch {
	case c == '<' && lx.peekAt(1) == '<':
		return lx.dict(depth)
	case c == '<':
		return lx.hexString()
	case c == '(':
		return lx.literalString()
	case c == '[':
		return lx.array(depth)
	case c == '/':
		return lx.name()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return lx.numberOrRef()
	}
	switch kw := lx.keyword(); kw {
	case "true":
		return raw.Bool(true), nil
	case "false":
		return raw.Bool(false), nil
	case "null":
		return raw.Null{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %q at %d", kw, lx.pos)
	}
}

func (lx *lexer) name() (raw.Object, error) {
	lx.pos++ // '/'
	var out bytes.Buffer
	for !lx.eof() {
		c := lx.data[lx.pos]
		if isDelimiter(c) {
			break
		}
		if c == '#' && lx.pos+2 < len(lx.data) {
			hi := hexNibble(lx.data[lx.pos+1])
			lo := hexNibble(lx.data[lx.pos+2])
			if hi >= 0 && lo >= 0 {
				out.WriteByte(byte(hi<<4 | lo))
				lx.pos += 3
				continue
			}
		}
		out.WriteByte(c)
		lx.pos++
	}
	return raw.Name(out.String()), nil
}

func hexNibble(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

func (lx *lexer) numberOrRef() (raw.Object, error) {
	first, err := lx.number()
	if err != nil {
		return nil, err
	}
	// "n g R" lookahead: only non-negative integers can start a reference.
	if first.IsInt && first.I >= 0 {
		save := lx.pos
		lx.skipWS()
		genStart := lx.pos
		if !lx.eof() && lx.data[lx.pos] >= '0' && lx.data[lx.pos] <= '9' {
			for !lx.eof() && lx.data[lx.pos] >= '0' && lx.data[lx.pos] <= '9' {
				lx.pos++
			}
			gen, _ := strconv.Atoi(string(lx.data[genStart:lx.pos]))
			lx.skipWS()
			if !lx.eof() && lx.data[lx.pos] == 'R' && (lx.pos+1 >= len(lx.data) || isDelimiter(lx.data[lx.pos+1])) {
				lx.pos++
				return raw.RefTo(int(first.I), gen), nil
			}
		}
		lx.pos = save
	}
	return first, nil
}

func (lx *lexer) number() (raw.Number, error) {
	lx.skipWS()
	start := lx.pos
	if c := lx.peek(); c == '+' || c == '-' {
		lx.pos++
	}
	isReal := false
	for !lx.eof() {
		c := lx.data[lx.pos]
		if c >= '0' && c <= '9' {
			lx.pos++
			continue
		}
		if c == '.' {
			isReal = true
			lx.pos++
			continue
		}
		break
	}
	tok := string(lx.data[start:lx.pos])
	if tok == "" || tok == "+" || tok == "-" || tok == "." {
		return raw.Number{}, fmt.Errorf("malformed number at %d", start)
	}
	if isReal {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return raw.Number{}, err
		}
		return raw.Real(f), nil
	}
	i, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return raw.Number{}, err
	}
	return raw.Int(i), nil
}

func (lx *lexer) literalString() (raw.Object, error) {
	lx.pos++ // '('
	var out bytes.Buffer
	depth := 1
	for !lx.eof() {
		c := lx.data[lx.pos]
		switch c {
		case '\\':
			lx.pos++
			if lx.eof() {
				return raw.Str(out.Bytes()), nil
			}
			esc := lx.data[lx.pos]
			switch esc {
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			case 'b':
				out.WriteByte('\b')
			case 'f':
				out.WriteByte('\f')
			case '\r':
				// line continuation, swallow optional LF
				if lx.peekAt(1) == '\n' {
					lx.pos++
				}
			case '\n':
				// line continuation
			default:
				if esc >= '0' && esc <= '7' {
					val := int(esc - '0')
					for k := 0; k < 2 && lx.pos+1 < len(lx.data); k++ {
						d := lx.data[lx.pos+1]
						if d < '0' || d > '7' {
							break
						}
						val = val<<3 + int(d-'0')
						lx.pos++
					}
					out.WriteByte(byte(val))
				} else {
					out.WriteByte(esc)
				}
			}
			lx.pos++
		case '(':
			depth++
			out.WriteByte(c)
			lx.pos++
		case ')':
			depth--
			if depth == 0 {
				lx.pos++
				return raw.Str(out.Bytes()), nil
			}
			out.WriteByte(c)
			lx.pos++
		default:
			out.WriteByte(c)
			lx.pos++
		}
	}
	return nil, fmt.Errorf("unterminated string")
}

func (lx *lexer) hexString() (raw.Object, error) {
	lx.pos++ // '<'
	var nibbles []byte
	for !lx.eof() {
		c := lx.data[lx.pos]
		if c == '>' {
			lx.pos++
			if len(nibbles)%2 == 1 {
				nibbles = append(nibbles, 0)
			}
			out := make([]byte, len(nibbles)/2)
			for i := range out {
				out[i] = nibbles[2*i]<<4 | nibbles[2*i+1]
			}
			return raw.String{Data: out, Hex: true}, nil
		}
		if n := hexNibble(c); n >= 0 {
			nibbles = append(nibbles, byte(n))
		}
		lx.pos++
	}
	return nil, fmt.Errorf("unterminated hex string")
}

func (lx *lexer) array(depth int) (raw.Object, error) {
	lx.pos++ // '['
	arr := raw.NewArray()
	for {
		lx.skipWS()
		if lx.eof() {
			return nil, fmt.Errorf("unterminated array")
		}
		if lx.peek() == ']' {
			lx.pos++
			return arr, nil
		}
		item, err := lx.value(depth + 1)
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
}

func (lx *lexer) dict(depth int) (raw.Object, error) {
	lx.pos += 2 // '<<'
	d := raw.NewDict()
	for {
		lx.skipWS()
		if lx.eof() {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		if lx.peek() == '>' && lx.peekAt(1) == '>' {
			lx.pos += 2
			return d, nil
		}
		if lx.peek() != '/' {
			return nil, fmt.Errorf("dictionary key must be a name at %d", lx.pos)
		}
		key, err := lx.name()
		if err != nil {
			return nil, err
		}
		val, err := lx.value(depth + 1)
		if err != nil {
			return nil, err
		}
		d.Set(string(key.(raw.Name)), val)
	}
}

const maxParseDepth = 64
