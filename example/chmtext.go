// chmtext.go -- read from variety of text files and populate a CHM DBWriter
//
// CHM's keys are the raw bytes the caller supplies, so these helpers
// hand the key field straight to the ChmDBWriter without hashing it.
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
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/opencoff/go-chm"
)

type chmRecord struct {
	key []byte
	val []byte
}

// AddChmTextFile adds contents from text file 'fn' where key and value
// are separated by one of the characters in 'delim'. Returns number of
// records added.
func AddChmTextFile(w *mph.ChmDBWriter, fn string, delim string) (uint64, error) {
	fd, err := os.Open(fn)
	if err != nil {
		return 0, err
	}

	if len(delim) == 0 {
		delim = " \t"
	}

	defer fd.Close()

	return AddChmTextStream(w, fd, delim)
}

// AddChmTextStream adds contents from text stream 'fd' where key and
// value are separated by one of the characters in 'delim'. Returns
// number of records added.
func AddChmTextStream(w *mph.ChmDBWriter, fd io.Reader, delim string) (uint64, error) {
	rd := bufio.NewReader(fd)
	sc := bufio.NewScanner(rd)
	ch := make(chan *chmRecord, 10)

	go func(sc *bufio.Scanner, ch chan *chmRecord) {
		var empty string

		for sc.Scan() {
			s := strings.TrimSpace(sc.Text())
			if len(s) == 0 || s[0] == '#' {
				continue
			}

			var k, v string

			i := strings.IndexAny(s, delim)
			if i > 0 {
				k = s[:i]
				v = s[i:]
			} else {
				k = s
				v = empty
			}

			if len(v) >= 4294967295 {
				continue
			}

			ch <- &chmRecord{key: []byte(k), val: []byte(v)}
		}

		close(ch)
	}(sc, ch)

	return addChmFromChan(w, ch)
}

// AddChmCSVFile adds contents from CSV file 'fn', taking the key from
// field 'kwfield' and the value from field 'valfield'; records with too
// few fields are skipped. The key field is used verbatim (not hashed).
func AddChmCSVFile(w *mph.ChmDBWriter, fn string, comma, comment rune, kwfield, valfield int) (uint64, error) {
	fd, err := os.Open(fn)
	if err != nil {
		return 0, err
	}

	defer fd.Close()

	return AddChmCSVStream(w, fd, comma, comment, kwfield, valfield)
}

// AddChmCSVStream is the streaming counterpart of AddChmCSVFile.
func AddChmCSVStream(w *mph.ChmDBWriter, fd io.Reader, comma, comment rune, kwfield, valfield int) (uint64, error) {
	if kwfield < 0 {
		kwfield = 0
	}
	if valfield < 0 {
		valfield = 1
	}

	max := valfield
	if kwfield > valfield {
		max = kwfield
	}
	max++

	ch := make(chan *chmRecord, 10)
	cr := csv.NewReader(fd)
	cr.Comma = comma
	cr.Comment = comment
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	go func(cr *csv.Reader, ch chan *chmRecord) {
		for {
			v, err := cr.Read()
			if err != nil {
				break
			}

			if len(v) < max {
				continue
			}

			ch <- &chmRecord{key: []byte(v[kwfield]), val: []byte(v[valfield])}
		}
		close(ch)
	}(cr, ch)

	return addChmFromChan(w, ch)
}

func addChmFromChan(w *mph.ChmDBWriter, ch chan *chmRecord) (uint64, error) {
	var n uint64
	for r := range ch {
		if err := w.Add(r.key, r.val); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
