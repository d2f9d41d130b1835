package main

import (
	"fmt"
	"io"

	"github.com/reglet-dev/reglet-script/domain/entities"
)

// progressPrinter writes progress updates as lines. Errors and warnings go
// to errOut.
type progressPrinter struct {
	out    io.Writer
	errOut io.Writer
}

func (p *progressPrinter) UpdateProgress(message string, percent int, level entities.ProgressLevel) {
	if message == "" {
		return
	}
	switch level {
	case entities.ProgressErrors:
		fmt.Fprintf(p.errOut, "error: %s\n", message)
	case entities.ProgressWarning:
		fmt.Fprintf(p.errOut, "warning: %s\n", message)
	default:
		if percent > 0 {
			fmt.Fprintf(p.out, "[%3d%%] %s\n", percent, message)
			return
		}
		fmt.Fprintln(p.out, message)
	}
}
