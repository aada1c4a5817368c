// Package fault carries unrecoverable cycle errors to the entry point
// together with the call site that produced them.
package fault

import (
	"errors"
	"path/filepath"
	"runtime"
	"strconv"

	"tempbeacon-go/errcode"
)

// Fault is a fatal error with its origin.
type Fault struct {
	Code errcode.Code
	Op   string
	File string
	Line int
	Err  error
}

// Capture wraps err with the file and line of the caller skip frames above
// Capture's caller (0 = the caller itself). It returns nil for a nil err.
func Capture(err error, skip int) *Fault {
	if err == nil {
		return nil
	}
	f := &Fault{Code: errcode.Of(err), Err: err}
	var e *errcode.E
	if errors.As(err, &e) {
		f.Op = e.Op
	}
	if _, file, line, ok := runtime.Caller(skip + 1); ok {
		f.File, f.Line = filepath.Base(file), line
	}
	return f
}

// Site is "file:line", or "" when unknown.
func (f *Fault) Site() string {
	if f.File == "" {
		return ""
	}
	return f.File + ":" + strconv.Itoa(f.Line)
}

func (f *Fault) Error() string {
	s := "fatal " + string(f.Code)
	if site := f.Site(); site != "" {
		s += " at " + site
	}
	if f.Err != nil {
		s += ": " + f.Err.Error()
	}
	return s
}

func (f *Fault) Unwrap() error { return f.Err }
