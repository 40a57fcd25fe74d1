// duet supervises a scripted two-bot chat worker and serves its control panel.
package main

import (
	"os"

	"github.com/xucongyong/duet/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
