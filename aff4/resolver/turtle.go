package resolver

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/aff4-go/aff4/aff4/rdfvalue"
	"github.com/pkg/errors"
)

// DumpTurtle serializes every triple in r.Store to w as Turtle,
// one "<subject> <predicate> <object> ." statement per line. This is
// a hand-rolled, narrow subset of Turtle: full subsets (blank nodes,
// prefixed names, collections) never appear in an AFF4 container's
// information.turtle, so there is no corpus library whose generality
// this would be grounded on using.
func (r *Resolver) DumpTurtle(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, subject := range r.Store.Subjects() {
		for _, attribute := range r.Store.Attributes(subject) {
			for _, v := range r.Store.RawValues(subject, attribute) {
				if _, err := fmt.Fprintf(bw, "<%s> <%s> %s .\n", subject, attribute, v.String()); err != nil {
					return errors.Wrap(err, "resolver: writing turtle statement")
				}
			}
		}
	}
	return bw.Flush()
}

// LoadTurtle parses Turtle written by DumpTurtle back into r.Store.
// typeHints maps a predicate URN to the literal type its object should
// be parsed as (e.g. aff4:size -> XSDInteger); predicates absent from
// typeHints default to XSDString, and any object written as <...> is
// always parsed as a URN regardless of typeHints.
func (r *Resolver) LoadTurtle(rd io.Reader, typeHints map[string]rdfvalue.XSDType) error {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		subject, attribute, object, err := parseStatement(line)
		if err != nil {
			return errors.Wrapf(err, "resolver: parsing turtle line %q", line)
		}
		var value Value
		if strings.HasPrefix(object, "<") {
			value = URNValue(rdfvalue.ParseURN(strings.TrimSuffix(strings.TrimPrefix(object, "<"), ">")))
		} else {
			t := rdfvalue.XSDString
			if hint, ok := typeHints[attribute]; ok {
				t = hint
			}
			lit, err := rdfvalue.ParseLiteral(t, object)
			if err != nil {
				return err
			}
			value = LiteralValue(lit)
		}
		r.Store.Add(rdfvalue.ParseURN(subject), rdfvalue.ParseURN(attribute), value)
	}
	return scanner.Err()
}

// parseStatement splits "<s> <p> o ." into (s, p, o), tolerating a
// quoted-string object that itself contains spaces.
func parseStatement(line string) (subject, attribute, object string, err error) {
	line = strings.TrimSuffix(strings.TrimSpace(line), ".")
	line = strings.TrimSpace(line)

	subject, rest, ok := takeBracketed(line)
	if !ok {
		return "", "", "", errors.New("expected <subject>")
	}
	rest = strings.TrimSpace(rest)
	attribute, rest, ok = takeBracketed(rest)
	if !ok {
		return "", "", "", errors.New("expected <predicate>")
	}
	object = strings.TrimSpace(rest)
	if object == "" {
		return "", "", "", errors.New("expected object")
	}
	return subject, attribute, object, nil
}

func takeBracketed(s string) (inner, rest string, ok bool) {
	if !strings.HasPrefix(s, "<") {
		return "", s, false
	}
	end := strings.Index(s, ">")
	if end < 0 {
		return "", s, false
	}
	return s[1:end], s[end+1:], true
}
