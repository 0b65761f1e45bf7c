package parser

import (
	"github.com/sirupsen/logrus"

	"github.com/nacelleio/step21/store"
)

// Options configures a Parser, the same flat-struct-passed-to-New
// shape goyang's yang.Options uses rather than a chain of functional
// setters.
type Options struct {
	// HeaderLimit overrides the lexer's bound on its search for the
	// PART21_START marker. Zero keeps the lexer's own default.
	HeaderLimit int

	// Logger receives structured diagnostics for recovered entity
	// instances. Defaults to logrus.StandardLogger() when nil.
	Logger *logrus.Logger

	// Store holds parsed entity instances. Defaults to a fresh
	// store.NewMemStore() when nil.
	Store store.Store
}
