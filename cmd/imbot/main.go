// Command imbot drives a mock bot through the event pipeline.
//
// Usage:
//
//	imbot simulate [--config settings.yaml] [--scenario scenario.yaml] [--friends 5] [--concurrency 4] [--log-format text|json|otel]
//	imbot settings [--config settings.yaml]
//
// Settings are read from the optional file and from IMBOT_* environment
// variables, e.g. IMBOT_EVENT_DISABLED=true or IMBOT_LOG_LEVEL=debug.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "imbot:", err)
		os.Exit(1)
	}
}
