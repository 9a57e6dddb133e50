package main

import (
	rigupcmd "github.com/rigup-dev/rigup/cmd"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	rigupcmd.SetVersionInfo(version, commit)
	rigupcmd.Execute()
}
