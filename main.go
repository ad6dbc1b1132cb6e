package main

import (
	_ "github.com/tanpawarit/supervisor-agent/pkg/logger/autoload"

	"github.com/tanpawarit/supervisor-agent/cmd"
)

func main() {
	cmd.Execute()
}
