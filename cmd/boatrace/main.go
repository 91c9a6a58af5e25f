package main

import (
	"boatrace-results/cmd/boatrace/commands"
	"boatrace-results/internal/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
