package ports

import (
	"io"

	"github.com/reglet-dev/reglet-script/domain/entities"
)

// Listener receives one message of script output.
type Listener func(text string)

// WriterListener returns a Listener writing each message as a line to w.
func WriterListener(w io.Writer) Listener {
	return func(text string) {
		_, _ = io.WriteString(w, text+"\n")
	}
}

// Discard is a Listener that drops every message.
func Discard(string) {}

// Progress receives progress updates from plug-ins and scoped commands.
type Progress interface {
	UpdateProgress(message string, percent int, level entities.ProgressLevel)
}
