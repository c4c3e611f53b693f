package gcode

import (
	"fmt"
	"strconv"
	"strings"
)

// Params holds the parameter words of a command line keyed by upper-case
// letter. Values are kept as written so the emitter can reproduce them.
type Params struct {
	words   map[byte]string
	order   []byte
	comment string
}

// ParseParams extracts the parameter words following the command word of
// text. Comments introduced by ';' and parenthesised comments are removed;
// a trailing "*NN" checksum ends the parameter list. Words may be separated
// by whitespace or written back to back ("X10Y5"). A lower-case 'e' glued
// to a number and followed by a digit or sign is read as an exponent and
// kept in the word, which Float then rejects: "X1e-3" is a bad X word,
// never "X1 E-3".
func ParseParams(text string) Params {
	_, rest := splitCommand(text)
	p := Params{}
	i := 0
	for i < len(rest) {
		c := rest[i]
		switch {
		case c == ';':
			p.comment = strings.TrimSpace(rest[i:])
			return p
		case c == '*':
			return p
		case c == '(':
			end := strings.IndexByte(rest[i:], ')')
			if end < 0 {
				return p
			}
			i += end + 1
			continue
		case isWordBoundary(c):
			i++
			continue
		case isParamLetter(c):
			letter := c &^ 0x20
			j := i + 1
			for j < len(rest) && !isWordBoundary(rest[j]) && (!isParamLetter(rest[j]) || isExponent(rest, j)) {
				j++
			}
			p.set(letter, rest[i+1:j])
			i = j
			continue
		default:
			i++
		}
	}
	return p
}

func isExponent(s string, i int) bool {
	if s[i] != 'e' || i == 0 || i+1 >= len(s) {
		return false
	}
	prev, next := s[i-1], s[i+1]
	return (isDigit(prev) || prev == '.') && (isDigit(next) || next == '-' || next == '+')
}

func (p *Params) set(letter byte, value string) {
	if p.words == nil {
		p.words = make(map[byte]string, 4)
	}
	if _, ok := p.words[letter]; !ok {
		p.order = append(p.order, letter)
	}
	p.words[letter] = value
}

// Has reports whether the letter is present.
func (p Params) Has(letter byte) bool {
	_, ok := p.words[letter]
	return ok
}

// Raw returns the value text of a parameter as written.
func (p Params) Raw(letter byte) (string, bool) {
	v, ok := p.words[letter]
	return v, ok
}

// Float returns the numeric value of a parameter. ok is false when the
// letter is absent; err is set when it is present but not a number.
func (p Params) Float(letter byte) (v float64, ok bool, err error) {
	raw, ok := p.words[letter]
	if !ok {
		return 0, false, nil
	}
	if raw == "" {
		return 0, true, fmt.Errorf("empty value")
	}
	if strings.ContainsAny(raw, "eE") {
		return 0, true, fmt.Errorf("exponent not supported")
	}
	v, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true, fmt.Errorf("not a number")
	}
	return v, true, nil
}

// Letters returns the parameter letters in the order they were written.
func (p Params) Letters() []byte {
	out := make([]byte, len(p.order))
	copy(out, p.order)
	return out
}

// Comment returns the trailing ';' comment including its marker.
func (p Params) Comment() string {
	return p.comment
}

// Len returns the number of parameters.
func (p Params) Len() int {
	return len(p.order)
}
