// Copyright 2015 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nacelleio/step21/ast"
	"github.com/nacelleio/step21/lexer"
	"github.com/nacelleio/step21/store"
)

// Stats reports counters gathered while parsing.
type Stats struct {
	// RecoveredInstances counts entity instances the error-recovery
	// production skipped rather than rejecting the whole file for.
	RecoveredInstances int
}

// baseTokenKinds names the lexer's closed token-kind set; a schema
// entity name colliding with one of these is rejected by
// RegisterSchema, the same check the base parser reserves its own
// vocabulary with.
var baseTokenKinds = map[string]bool{
	"PART21_START": true, "PART21_END": true, "HEADER": true, "DATA": true,
	"ENDSEC": true, "INTEGER": true, "REAL": true, "STRING": true,
	"BINARY": true, "ENUMERATION": true, "KEYWORD": true, "EID": true, "RAW": true,
}

// Parser parses the contents of a single exchange file. A Parser owns
// one entity store across its lifetime; Reset empties it between
// parses rather than Parse taking a fresh one each call.
type Parser struct {
	opts    Options
	store   store.Store
	schemas map[string]bool
	active  string

	lex    *lexer.Lexer
	tokens []*lexer.Token // pushback stack, LIFO like goyang's parser.tokens
	stats  Stats
}

// New returns a Parser configured by opts. opts.Store defaults to a
// fresh store.NewMemStore() when nil.
func New(opts Options) *Parser {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	st := opts.Store
	if st == nil {
		st = store.NewMemStore()
	}
	return &Parser{opts: opts, store: st, schemas: map[string]bool{}}
}

// Stats returns the counters gathered by the most recent Parse call.
func (p *Parser) Stats() Stats { return p.stats }

// Store returns the entity store entity instances are streamed into.
func (p *Parser) Store() store.Store { return p.store }

// Reset empties the entity store and returns the Parser to its
// initial state, ready for another Parse call.
func (p *Parser) Reset() error {
	p.stats = Stats{}
	p.tokens = nil
	p.lex = nil
	return p.store.Reset()
}

// RegisterSchema pre-registers a schema's keyword set. The base
// parser never consults it: data-section tails are captured as RAW
// regardless of any active schema, so this exists only so schema-aware
// consumers downstream have a place to record what they expect.
// Registering a name twice, or an entity name colliding with a base
// token kind, is an error.
func (p *Parser) RegisterSchema(name string, entities []string) error {
	if p.schemas[name] {
		return fmt.Errorf("parser: schema %q already registered", name)
	}
	for _, e := range entities {
		if baseTokenKinds[strings.ToUpper(e)] {
			return fmt.Errorf("parser: entity name %q collides with a base token kind", e)
		}
	}
	p.schemas[name] = true
	return nil
}

// ActivateSchema selects a previously registered schema. It is inert
// with respect to parsing (see RegisterSchema); an unknown name is an
// error.
func (p *Parser) ActivateSchema(name string) error {
	if !p.schemas[name] {
		return fmt.Errorf("parser: unknown schema %q", name)
	}
	p.active = name
	return nil
}

// Parse parses input (named path for diagnostics), streaming every
// data-section entity instance into the Parser's store as it is read,
// and returns the header-side AST.
func (p *Parser) Parse(input, path string) (*ast.File, error) {
	p.stats = Stats{}
	p.tokens = nil
	p.lex = lexer.New(input, path)
	if p.opts.HeaderLimit > 0 {
		p.lex.HeaderLimit = p.opts.HeaderLimit
	}

	if err := p.expect(lexer.Part21Start, "ISO-10303-21;"); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.Header, "HEADER;"); err != nil {
		return nil, err
	}

	file := &ast.File{}
	hdr, err := p.parseHeader()
	if err != nil {
		return nil, err
	}
	file.Header = hdr

	for {
		t := p.next()
		switch {
		case t == nil:
			return nil, fmt.Errorf("parser: %s: unexpected EOF, expected DATA or END-ISO-10303-21;", path)
		case t.Code == lexer.Part21End:
			return file, nil
		case t.Code == lexer.Data:
			sec, err := p.parseDataSection(len(file.Sections) + 1)
			if err != nil {
				return nil, err
			}
			file.Sections = append(file.Sections, sec)
		default:
			return nil, p.syntaxError(t, "DATA or END-ISO-10303-21;")
		}
	}
}

// push pushes a token back on the input stream so it is the next one
// returned by next.
func (p *Parser) push(t *lexer.Token) { p.tokens = append(p.tokens, t) }

// pop returns the last token pushed, or nil if the pushback stack is empty.
func (p *Parser) pop() *lexer.Token {
	if n := len(p.tokens); n > 0 {
		n--
		defer func() { p.tokens = p.tokens[:n] }()
		return p.tokens[n]
	}
	return nil
}

// next returns the next token, preferring anything pushed back over
// the lexer.
func (p *Parser) next() *lexer.Token {
	if t := p.pop(); t != nil {
		return t
	}
	return p.lex.NextToken()
}

func (p *Parser) expect(c lexer.Code, want string) error {
	t := p.next()
	if t == nil || t.Code != c {
		return p.syntaxError(t, want)
	}
	return nil
}

func (p *Parser) syntaxError(t *lexer.Token, want string) error {
	if t == nil {
		return &SyntaxError{Want: want, Msg: "unexpected EOF"}
	}
	if t.Code == lexer.Error {
		err := ErrInvalidToken
		if t.Overflow {
			err = ErrHeaderOverflow
		}
		return &SyntaxError{File: t.File, Line: t.Line, Col: t.Col, Want: want, Msg: t.Text, Err: err}
	}
	return &SyntaxError{File: t.File, Line: t.Line, Col: t.Col, Want: want, Msg: fmt.Sprintf("unexpected %s %q", t.Code, t.Text)}
}

// parseHeader reads:
//
//	header_entity header_entity header_entity header_entity_list? ENDSEC;
//
// binding the first three header entities positionally to
// FileDescription/FileName/FileSchema regardless of their keyword
// text, the same way P21Header(p[2], p[3], p[4]) does in the original
// grammar action, and anything after the third to ExtraHeaders. A
// header with fewer than three entities before ENDSEC; is a syntax
// error.
func (p *Parser) parseHeader() (ast.Header, error) {
	var h ast.Header
	var count int
	for {
		t := p.next()
		if t == nil {
			return h, fmt.Errorf("parser: unexpected EOF in HEADER section")
		}
		if t.Code == lexer.Endsec {
			if count < 3 {
				return h, p.syntaxError(t, "a third header entity before ENDSEC;")
			}
			return h, nil
		}
		if t.Code != lexer.Keyword {
			return h, p.syntaxError(t, "a header entity or ENDSEC;")
		}
		he, err := p.parseHeaderEntity(t.Text)
		if err != nil {
			return h, err
		}
		count++
		switch count {
		case 1:
			h.FileDescription = he
		case 2:
			h.FileName = he
		case 3:
			h.FileSchema = he
		default:
			h.ExtraHeaders = append(h.ExtraHeaders, he)
		}
	}
}

// parseHeaderEntity reads '(' parameter_list? ')' ';' for the entity
// named name, whose KEYWORD token has already been consumed.
func (p *Parser) parseHeaderEntity(name string) (ast.HeaderEntity, error) {
	he := ast.HeaderEntity{TypeName: name}
	if err := p.expect(lexer.Code('('), "'('"); err != nil {
		return he, err
	}
	t := p.next()
	if t == nil {
		return he, fmt.Errorf("parser: unexpected EOF in %s parameter list", name)
	}
	if t.Code != lexer.Code(')') {
		p.push(t)
		params, err := p.parseParameterList()
		if err != nil {
			return he, err
		}
		he.Params = params
		if err := p.expect(lexer.Code(')'), "')'"); err != nil {
			return he, err
		}
	}
	if err := p.expect(lexer.Code(';'), "';'"); err != nil {
		return he, err
	}
	return he, nil
}

// parseParameterList reads a comma-separated run of parameters, with
// at least one already pending on the token stream.
func (p *Parser) parseParameterList() ([]ast.Parameter, error) {
	var params []ast.Parameter
	for {
		param, err := p.parseParameter()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		t := p.next()
		if t == nil {
			return nil, fmt.Errorf("parser: unexpected EOF in parameter list")
		}
		if t.Code == lexer.Code(',') {
			continue
		}
		p.push(t)
		return params, nil
	}
}

// parseParameter reads a single parameter_list element.
func (p *Parser) parseParameter() (ast.Parameter, error) {
	t := p.next()
	if t == nil {
		return nil, fmt.Errorf("parser: unexpected EOF, expected a parameter")
	}
	switch t.Code {
	case lexer.String:
		return ast.String{Text: t.Text}, nil
	case lexer.Integer:
		return ast.Integer{Text: t.Text}, nil
	case lexer.Real:
		return ast.Real{Text: t.Text}, nil
	case lexer.EID:
		return ast.Eid{Text: t.Text}, nil
	case lexer.Enumeration:
		return ast.Enumeration{Text: t.Text}, nil
	case lexer.Binary:
		return ast.Binary{Text: t.Text}, nil
	case lexer.Code('*'):
		return ast.Omitted{}, nil
	case lexer.Code('$'):
		return ast.Unset{}, nil
	case lexer.Code('('):
		nt := p.next()
		if nt == nil {
			return nil, fmt.Errorf("parser: unexpected EOF in nested parameter list")
		}
		if nt.Code == lexer.Code(')') {
			return ast.EmptyList{}, nil
		}
		p.push(nt)
		params, err := p.parseParameterList()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Code(')'), "')'"); err != nil {
			return nil, err
		}
		return ast.List{Params: params}, nil
	case lexer.Keyword:
		if err := p.expect(lexer.Code('('), "'('"); err != nil {
			return nil, err
		}
		inner, err := p.parseParameter()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Code(')'), "')'"); err != nil {
			return nil, err
		}
		return ast.Typed{TypeName: t.Text, Param: inner}, nil
	}
	return nil, p.syntaxError(t, "a parameter")
}

// parseDataSection reads data_start, one of:
//
//	DATA '(' parameter_list ')' ';'
//	DATA '(' ')' ';'
//	DATA ';'
//
// (the DATA keyword itself already consumed by the caller), discarding
// the optional parenthesized parameter list, then reads
// entity_instance* ENDSEC;.
func (p *Parser) parseDataSection(seqNo int) (ast.Section, error) {
	sec := ast.Section{SeqNo: seqNo}
	t := p.next()
	if t == nil {
		return sec, fmt.Errorf("parser: unexpected EOF after DATA")
	}
	if t.Code == lexer.Code('(') {
		nt := p.next()
		if nt == nil {
			return sec, fmt.Errorf("parser: unexpected EOF in DATA parameter list")
		}
		if nt.Code != lexer.Code(')') {
			p.push(nt)
			if _, err := p.parseParameterList(); err != nil {
				return sec, err
			}
			if err := p.expect(lexer.Code(')'), "')'"); err != nil {
				return sec, err
			}
		}
	} else {
		p.push(t)
	}
	if err := p.expect(lexer.Code(';'), "';'"); err != nil {
		return sec, err
	}
	for {
		t := p.next()
		if t == nil {
			return sec, fmt.Errorf("parser: unexpected EOF in DATA section %d", seqNo)
		}
		if t.Code == lexer.Endsec {
			return sec, nil
		}
		if t.Code != lexer.EID {
			return sec, p.syntaxError(t, "an entity instance or ENDSEC;")
		}
		if err := p.parseEntityInstance(t); err != nil {
			return sec, err
		}
	}
}

// parseEntityInstance implements:
//
//	entity_instance := EID '=' KEYWORD RAW ';'   (simple)
//	                  | EID '=' RAW ';'          (complex)
//	                  | EID '=' error ';'        (recovery)
//
// idTok is the already-consumed EID. A malformed instance is skipped,
// not fatal: recover resynchronizes at the next ';' and the parse
// continues.
func (p *Parser) parseEntityInstance(idTok *lexer.Token) error {
	id := idTok.Text
	if err := p.expect(lexer.Code('='), "'='"); err != nil {
		return err
	}
	t := p.next()
	if t == nil {
		return fmt.Errorf("parser: unexpected EOF after %s =", id)
	}
	if t.Code == lexer.Error {
		return p.recover(id, idTok.Line, t)
	}

	rec := store.Record{ID: id, Lineno: idTok.Line}
	rawTok := t
	if t.Code == lexer.Keyword {
		rec.TypeName = t.Text
		rec.EntityType = store.Simple
		rawTok = p.next()
	} else {
		rec.EntityType = store.Complex
	}
	if rawTok == nil {
		return fmt.Errorf("parser: unexpected EOF reading instance %s", id)
	}
	if rawTok.Code == lexer.Error {
		return p.recover(id, idTok.Line, rawTok)
	}
	if rawTok.Code != lexer.Raw {
		return p.syntaxError(rawTok, "instance parameter data")
	}
	rec.RawData = rawTok.Text

	semi := p.next()
	if semi == nil || semi.Code != lexer.Code(';') {
		return p.syntaxError(semi, "';'")
	}

	if err := p.store.Append(rec); err != nil {
		return fmt.Errorf("parser: %s:%d: entity %s: %w", idTok.File, idTok.Line, id, err)
	}
	return nil
}

// recover resynchronizes after an error inside an entity instance's
// body: it forces the lexer into RAW mode to scan to the instance's
// terminating ';' the same way a well-formed tail is captured, then
// logs the skipped range instead of failing the whole parse.
func (p *Parser) recover(id string, startLine int, errTok *lexer.Token) error {
	endLine := errTok.Line
	excerpt := errTok.Text
	p.lex.EnterRaw()
	for {
		t := p.next()
		if t == nil {
			return fmt.Errorf("parser: unexpected EOF recovering from error in instance %s", id)
		}
		endLine = t.Line
		if t.Code == lexer.Code(';') {
			break
		}
	}
	p.stats.RecoveredInstances++
	p.opts.Logger.WithFields(logrus.Fields{
		"id":       id,
		"line":     startLine,
		"line_end": endLine,
		"excerpt":  excerpt,
	}).Warn("skipped malformed entity instance")
	return nil
}
