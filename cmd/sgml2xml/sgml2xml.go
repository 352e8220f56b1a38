package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr/funcr"
	"github.com/jessevdk/go-flags"
	"github.com/mindtouch/sgml"
)

type cmdopts struct {
	DocType     string `long:"doctype" default:"HTML" description:"declared root element"`
	Lower       bool   `long:"lower" description:"fold element and attribute names to lower case"`
	Upper       bool   `long:"upper" description:"fold element and attribute names to upper case"`
	KeepDocType bool   `long:"keep-doctype" description:"emit the DOCTYPE instead of stripping it"`
	NoBlanks    bool   `long:"noblanks" description:"suppress whitespace-only text"`
	Format      bool   `long:"format" description:"indent the output"`
	Quiet       bool   `long:"quiet" description:"suppress recovery diagnostics"`
	Version     bool   `long:"version"`
}

func main() {
	os.Exit(_main())
}

func showVersion() {
	fmt.Printf("sgml2xml: using sgml version %s\n", sgml.Version)
}

func showUsage() {
	fmt.Printf(`Usage : sgml2xml [options] HTMLfiles ...
	Read the SGML/HTML files (or stdin) and print the repaired XML
`)
}

func _main() int {
	opts := cmdopts{}
	args, err := flags.ParseArgs(&opts, os.Args[1:])
	if err != nil {
		showUsage()
		return 1
	}

	if opts.Version {
		showVersion()
		return 0
	}

	var inputs []io.Reader
	if len(args) > 0 {
		for _, f := range args {
			fh, err := os.Open(f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s\n", err)
				return 1
			}
			defer fh.Close()
			inputs = append(inputs, fh)
		}
	} else {
		inputs = append(inputs, os.Stdin)
	}

	ropts := []sgml.ReaderOption{
		sgml.WithDocType(opts.DocType),
		sgml.WithStripDocType(!opts.KeepDocType),
	}
	switch {
	case opts.Lower:
		ropts = append(ropts, sgml.WithCaseFolding(sgml.FoldToLower))
	case opts.Upper:
		ropts = append(ropts, sgml.WithCaseFolding(sgml.FoldToUpper))
	}
	if opts.NoBlanks {
		ropts = append(ropts, sgml.WithWhitespaceHandling(sgml.WhitespaceNone))
	}
	if !opts.Quiet {
		sink := funcr.New(func(prefix, args string) {
			fmt.Fprintf(os.Stderr, "sgml2xml: %s\n", args)
		}, funcr.Options{})
		ropts = append(ropts, sgml.WithErrorLog(sink))
	}

	d := sgml.Dumper{}
	if opts.Format {
		d.Indent = "  "
	}
	for _, in := range inputs {
		r := sgml.NewReader(in, ropts...)
		if err := d.Dump(os.Stdout, r); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			return 1
		}
		fmt.Println()
	}

	return 0
}
