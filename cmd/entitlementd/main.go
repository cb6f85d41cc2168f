// Command entitlementd serves feature entitlements of the lab-results app:
// plan based access, one-time feature trials, trial periods and monthly usage
// limits.
package main

import (
	"context"
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCommand(version, commit).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
