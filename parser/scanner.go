package parser

import (
	"fmt"
	"strconv"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokName
	tokString
	tokHexString
	tokDictOpen
	tokDictClose
	tokArrayOpen
	tokArrayClose
	tokKeyword
)

type token struct {
	kind  tokKind
	pos   int
	isInt bool
	i     int64
	f     float64
	name  string // name value or keyword text
	bytes []byte // string content
}

// scanner tokenizes PDF syntax from a byte slice. Position is the only
// state, so callers may save and restore it for lookahead.
type scanner struct {
	data []byte
	pos  int
}

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (s *scanner) skipWSAndComments() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

func (s *scanner) next() (token, error) {
	s.skipWSAndComments()
	if s.pos >= len(s.data) {
		return token{kind: tokEOF, pos: s.pos}, nil
	}
	start := s.pos
	c := s.data[s.pos]
	switch {
	case c == '/':
		s.pos++
		return s.scanName(start)
	case c == '(':
		s.pos++
		return s.scanLiteralString(start)
	case c == '<':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
			s.pos += 2
			return token{kind: tokDictOpen, pos: start}, nil
		}
		s.pos++
		return s.scanHexString(start)
	case c == '>':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '>' {
			s.pos += 2
			return token{kind: tokDictClose, pos: start}, nil
		}
		return token{}, fmt.Errorf("offset %d: stray '>'", start)
	case c == '[':
		s.pos++
		return token{kind: tokArrayOpen, pos: start}, nil
	case c == ']':
		s.pos++
		return token{kind: tokArrayClose, pos: start}, nil
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return s.scanNumber(start)
	case c == '{' || c == '}' || c == ')':
		return token{}, fmt.Errorf("offset %d: unexpected %q", start, c)
	default:
		return s.scanKeyword(start)
	}
}

func (s *scanner) scanName(start int) (token, error) {
	var out []byte
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		if c == '#' && s.pos+2 < len(s.data) {
			hi, okHi := hexVal(s.data[s.pos+1])
			lo, okLo := hexVal(s.data[s.pos+2])
			if okHi && okLo {
				out = append(out, hi<<4|lo)
				s.pos += 3
				continue
			}
		}
		out = append(out, c)
		s.pos++
	}
	return token{kind: tokName, pos: start, name: string(out)}, nil
}

func (s *scanner) scanLiteralString(start int) (token, error) {
	var out []byte
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.pos >= len(s.data) {
				return token{}, fmt.Errorf("offset %d: unterminated string", start)
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && s.pos < len(s.data); k++ {
						d := s.data[s.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						s.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return token{kind: tokString, pos: start, bytes: out}, nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return token{}, fmt.Errorf("offset %d: unterminated string", start)
}

func (s *scanner) scanHexString(start int) (token, error) {
	var out []byte
	var hi byte
	have := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			if have {
				out = append(out, hi<<4)
			}
			return token{kind: tokHexString, pos: start, bytes: out}, nil
		}
		if isWhitespace(c) {
			continue
		}
		v, ok := hexVal(c)
		if !ok {
			return token{}, fmt.Errorf("offset %d: bad hex digit %q", s.pos-1, c)
		}
		if have {
			out = append(out, hi<<4|v)
			have = false
		} else {
			hi = v
			have = true
		}
	}
	return token{}, fmt.Errorf("offset %d: unterminated hex string", start)
}

func (s *scanner) scanNumber(start int) (token, error) {
	isInt := true
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '.' {
			isInt = false
			s.pos++
			continue
		}
		if c == '+' || c == '-' || (c >= '0' && c <= '9') {
			s.pos++
			continue
		}
		break
	}
	text := string(s.data[start:s.pos])
	if isInt {
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return token{}, fmt.Errorf("offset %d: bad integer %q", start, text)
		}
		return token{kind: tokNumber, pos: start, isInt: true, i: v}, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, fmt.Errorf("offset %d: bad real %q", start, text)
	}
	return token{kind: tokNumber, pos: start, f: f}, nil
}

func (s *scanner) scanKeyword(start int) (token, error) {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		s.pos++
	}
	if s.pos == start {
		return token{}, fmt.Errorf("offset %d: unexpected byte %q", start, s.data[start])
	}
	return token{kind: tokKeyword, pos: start, name: string(s.data[start:s.pos])}, nil
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
