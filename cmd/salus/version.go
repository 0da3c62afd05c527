package main

import (
	"fmt"

	"github.com/ternarybob/salus/internal/common"
)

func printVersion() {
	fmt.Printf("Salus version %s (build %s, commit %s)\n",
		common.GetVersion(), common.GetBuild(), common.GetGitCommit())
}
