// Package hublog provides the structured logging the store package uses to
// report commit failures and DataSource panics.
package hublog

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// streamSplitter routes logrus output to stderr for error level and above,
// stdout otherwise, so containerized hosts can treat the streams differently.
type streamSplitter struct{}

func (streamSplitter) Write(p []byte) (int, error) {
	for _, level := range []string{"error", "fatal", "panic"} {
		if bytes.Contains(p, []byte("level="+level)) || bytes.Contains(p, []byte(`"level":"`+level+`"`)) {
			return os.Stderr.Write(p)
		}
	}
	return os.Stdout.Write(p)
}

// defaultLogrus is the package-wide logrus instance backing NewLogger(nil).
var defaultLogrus = logrus.New()

func init() {
	defaultLogrus.SetOutput(streamSplitter{})
}
