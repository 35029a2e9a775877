// Package exittest intercepts fatal log exits so fail-fast paths can be
// asserted in-process.
package exittest

import (
	"bytes"
	"testing"

	"github.com/saworbit/ioprimer/internal/logging"
)

type exitCode int

// Result describes what happened while running a function under Catch.
type Result struct {
	Exited bool
	Code   int
	Log    string
}

// Catch runs fn with the logger's exit function replaced. If fn triggers a
// fatal exit, execution of fn stops there and the exit code is reported.
func Catch(t testing.TB, fn func()) (res Result) {
	t.Helper()

	var buf bytes.Buffer
	prevExit := logging.Log.ExitFunc
	prevOut := logging.Log.Out
	logging.Log.ExitFunc = func(code int) { panic(exitCode(code)) }
	logging.Log.SetOutput(&buf)
	defer func() {
		logging.Log.ExitFunc = prevExit
		logging.Log.SetOutput(prevOut)
		res.Log = buf.String()

		if r := recover(); r != nil {
			code, ok := r.(exitCode)
			if !ok {
				panic(r)
			}
			res.Exited = true
			res.Code = int(code)
		}
	}()

	fn()
	return res
}
