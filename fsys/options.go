package fsys

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Option configures an FS.
type Option func(*FS) error

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l logrus.FieldLogger) Option {
	return func(fs *FS) error {
		fs.log = l
		return nil
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}
