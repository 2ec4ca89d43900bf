package panicerr

import (
	"github.com/sourcegraph/conc/panics"
)

// Call runs fn and returns its error, or the recovered panic as an error.
func Call(fn func() error) error {
	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = fn()
	})
	if r := catcher.Recovered(); r != nil {
		return r.AsError()
	}
	return err
}
