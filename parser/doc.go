// Package parser implements a recursive-descent parser for ISO 10303-21
// (STEP Part 21) exchange files over the token stream package lexer
// produces.
//
// Parse walks PART21_START, the HEADER section's three mandatory
// entities plus any extras, and each DATA section's entity instances,
// streaming every instance into the Parser's store as it is read
// rather than building an in-memory tree of them. Only the HEADER
// section is returned as an AST (package ast); DATA section instances
// are recovered later by looking them up in the store.
//
//	p := parser.New(parser.Options{})
//	f, err := p.Parse(input, "part.stp")
//	rec, ok, err := p.Store().Get("#10")
//
// A malformed entity instance does not abort the parse: Parse
// resynchronizes at the next ';' and continues, recording the skip in
// Parser.Stats().RecoveredInstances.
package parser
