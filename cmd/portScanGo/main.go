package main

import (
	"PortScanGo/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Execute(cli.NewRootCommand())
}
