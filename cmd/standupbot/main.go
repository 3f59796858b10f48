// standupbot - daily standup task lists over Slack DMs
//
// Each user DMs the bot to build a task list for the day:
// 1. "start" opens a list, lines starting with "-" add tasks
// 2. "done 1,3", "wip 2", "cancelled 4", "delete 5" update it
// 3. "publish" posts it to the team channel and starts a fresh list
//
// Finished and cancelled tasks are dropped after each publish.
package main

import (
	"fmt"
	"os"

	"github.com/beadhub/standupbot/internal/commands"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
