// Program step21lex parses ISO 10303-21 exchange files, reports
// errors, and optionally dumps the parsed header and entity table.
//
// Usage: step21lex [--dump] [--bolt FILE] [--header-limit N] [FILE ...]
//
// If no FILE is given, standard input is read. Each file is parsed
// independently against a fresh entity store; --bolt persists that
// store to an on-disk bbolt database instead of the default in-memory
// one.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/repr"
	"github.com/pborman/getopt"
	"github.com/sirupsen/logrus"

	"github.com/nacelleio/step21/parser"
	"github.com/nacelleio/step21/store"
)

func main() {
	var dump bool
	var boltPath string
	var headerLimit int
	var verbose bool
	var help bool

	getopt.BoolVarLong(&dump, "dump", 'd', "pretty-print the parsed header and entity table")
	getopt.StringVarLong(&boltPath, "bolt", 0, "persist the entity table to this bbolt database file instead of memory", "FILE")
	getopt.IntVarLong(&headerLimit, "header-limit", 0, "override the lexer's bound on pre-header junk, 0 keeps the default", "N")
	getopt.BoolVarLong(&verbose, "verbose", 'v', "log at debug level")
	getopt.BoolVarLong(&help, "help", '?', "display help")
	getopt.SetParameters("[FILE ...]")

	getopt.Parse()
	if help {
		getopt.PrintUsage(os.Stderr)
		os.Exit(0)
	}

	logger := logrus.StandardLogger()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	opts := parser.Options{HeaderLimit: headerLimit, Logger: logger}

	files := getopt.Args()
	if len(files) == 0 {
		files = []string{"-"}
	}

	status := 0
	for _, name := range files {
		if err := run(name, opts, boltPath, dump); err != nil {
			fmt.Fprintln(os.Stderr, err)
			status = 1
		}
	}
	os.Exit(status)
}

func run(name string, opts parser.Options, boltPath string, dump bool) error {
	data, path, err := readInput(name)
	if err != nil {
		return fmt.Errorf("step21lex: %s: %w", name, err)
	}

	st, closeStore, err := openStore(boltPath)
	if err != nil {
		return fmt.Errorf("step21lex: %s: %w", name, err)
	}
	defer closeStore()

	opts.Store = st
	p := parser.New(opts)
	if err := p.Reset(); err != nil {
		return fmt.Errorf("step21lex: %s: %w", name, err)
	}
	f, err := p.Parse(string(data), path)
	if err != nil {
		return fmt.Errorf("step21lex: %s: %w", name, err)
	}

	if stats := p.Stats(); stats.RecoveredInstances > 0 {
		fmt.Fprintf(os.Stderr, "step21lex: %s: recovered from %d malformed entity instance(s)\n", path, stats.RecoveredInstances)
	}

	if dump {
		repr.Println(f.Header)
		all, err := p.Store().All()
		if err != nil {
			return fmt.Errorf("step21lex: %s: %w", name, err)
		}
		repr.Println(all)
	}
	return nil
}

func readInput(name string) ([]byte, string, error) {
	if name == "-" {
		data, err := io.ReadAll(os.Stdin)
		return data, "<STDIN>", err
	}
	data, err := os.ReadFile(name)
	return data, name, err
}

func openStore(boltPath string) (store.Store, func(), error) {
	if boltPath == "" {
		s := store.NewMemStore()
		return s, func() {}, nil
	}
	s, err := store.OpenBoltStore(boltPath)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}
