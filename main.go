package main

import (
	"github.com/dockhand-sh/dockhand/cmd"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	cmd.Execute(version, commit, date)
}
