package ggm

import "github.com/sirupsen/logrus"

// Logger receives trace output about frontier changes. Node values and
// generator keys are never logged.
var Logger = logrus.StandardLogger()
