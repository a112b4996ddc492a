package main

import (
	"os"

	"github.com/researchaccelerator-hub/channel-analytics/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
