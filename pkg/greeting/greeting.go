// Package greeting prints a fixed greeting and a person record, aborting the
// process when the greeting buffer turns out to be empty.
package greeting

import (
	"fmt"
	"io"
	"strings"

	"github.com/saworbit/ioprimer/pkg/contract"
)

// Diagnostic is logged when the greeting buffer is empty.
const Diagnostic = "Hello! This is panic function"

const (
	literal = "Jai Pal"
	defName = "jaipal"
	defAge  = 30
)

// Record is an immutable name/age pair.
type Record struct {
	name string
	age  int
}

// NewRecord builds a Record.
func NewRecord(name string, age int) Record {
	return Record{name: name, age: age}
}

func (r Record) Name() string { return r.name }
func (r Record) Age() int     { return r.age }

// String renders the record as "<name> - <age>".
func (r Record) String() string {
	return fmt.Sprintf("%s - %d", r.name, r.age)
}

// Options tweak how Run builds its buffer.
type Options struct {
	// SkipAppend leaves the buffer empty, which trips the abort.
	SkipAppend bool
}

// Run builds the buffer and record, aborts if the buffer is empty and
// otherwise prints both to w.
func Run(w io.Writer, opts Options) error {
	var username strings.Builder
	if !opts.SkipAppend {
		username.WriteString(literal)
	}
	rec := NewRecord(defName, defAge)

	contract.Require(username.Len() > 0, Diagnostic)

	if _, err := fmt.Fprintln(w, username.String()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, rec)
	return err
}
