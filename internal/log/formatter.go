// Package log provides the logrus formatter shared by all ledgerlink components.
package log

import (
	"time"

	"github.com/sirupsen/logrus"
)

var fieldMap = logrus.FieldMap{
	logrus.FieldKeyTime:  "ts",
	logrus.FieldKeyLevel: "level",
	logrus.FieldKeyMsg:   "msg",
}

// NewFormatter returns a JSON formatter when jsonOutput is set, a plain text formatter otherwise
func NewFormatter(jsonOutput bool) logrus.Formatter {
	if jsonOutput {
		return &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap:        fieldMap,
		}
	}
	return &logrus.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  time.RFC3339,
		DisableColors:    true,
		QuoteEmptyFields: true,
		FieldMap:         fieldMap,
	}
}
