// make.go -- 'make' command implementation
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/opencoff/go-chm"
	flag "github.com/opencoff/pflag"
)

type makeCommand struct{}

func init() {
	m := makeCommand{}
	registerCommand("make", &m)
}

func (m *makeCommand) run(args []string, opt *Option) (err error) {
	var iterMult float64
	var cdb *mph.ChmDBWriter

	defer func(e *error) {
		if *e != nil && cdb != nil {
			cdb.Abort()
		}
	}(&err)

	fs := flag.NewFlagSet("make", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Float64VarP(&iterMult, "chm-iter-mult", "I", float64(mph.DefaultIterMaxMult), "Use `N` as the construction iteration-cap multiplier")
	fs.Usage = func() {
		fmt.Printf(`Usage: make [options] DB [INPUT...]

where:
   DB	    is the name of the output MPH database file
   INPUT    is one or more optional input files

The input file(s) must have a name suffix of one of the following:
   .txt	    A key,value per-line delimited by white space
   .txt     one key per line (no embedded whitespace)
   .csv	    A comma-separated key,value file

The raw key bytes are kept (not hashed down to a uint64), which lets
the DB serve the real key back to the caller and verify it
byte-for-byte on lookup.

options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	err = fs.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("make: %w", err)
	}

	args = fs.Args()
	if len(args) < 1 {
		return fmt.Errorf("make: insufficient args")
	}

	fn := args[0]
	args = args[1:]

	cdb, err = mph.NewChmDBWriter(fn)
	if err != nil {
		return fmt.Errorf("make: can't create MPH DB: %w", err)
	}

	b := mph.NewChmBuilder()
	if iterMult > 0 {
		b.IterMaxMult = int(iterMult)
	}

	var tot uint64
	if len(args) > 0 {
		var n uint64
		for _, f := range args {
			switch {
			case strings.HasSuffix(f, ".txt"):
				n, err = AddChmTextFile(cdb, f, " \t")

			case strings.HasSuffix(f, ".csv"):
				n, err = AddChmCSVFile(cdb, f, ',', '#', 0, 1)

			default:
				return fmt.Errorf("make: don't know how to add %s", f)
			}

			if err != nil {
				return fmt.Errorf("make: can't add %s: %s", f, err)
			}

			opt.Printf("+ %s: %d records\n", f, n)
			tot += n
		}
	} else {
		var n uint64

		n, err = AddChmTextStream(cdb, os.Stdin, " \t")
		if err != nil {
			return fmt.Errorf("make: can't add text from stdin: %w", err)
		}

		opt.Printf("+ <STDIN>: %d records\n", n)
		tot += n
	}

	start := time.Now()
	err = cdb.Freeze(b)
	if err != nil {
		return fmt.Errorf("make: can't write db %s: %s", fn, err)
	}
	delta := time.Now().Sub(start)
	speed := (1.0e6 * float64(tot)) / float64(delta.Microseconds())
	opt.Printf("%d keys, %s (%3.1f keys/sec)\n", tot, delta.Truncate(time.Millisecond).String(), speed)

	return nil
}
