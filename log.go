package ppoprf

import (
	"github.com/privacybydesign/ppoprf/ggm"
	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	SetLogger(logrus.StandardLogger())
}

// SetLogger makes this package and the puncturable PRF log to l.
func SetLogger(l *logrus.Logger) {
	Logger = l
	ggm.Logger = l
}
