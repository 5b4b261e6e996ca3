package main

import (
	"github.com/kenobeee/mettta-space/cmd"
	"github.com/kenobeee/mettta-space/internal/logging"
)

func main() {
	logging.Init("")
	cmd.Execute()
}
