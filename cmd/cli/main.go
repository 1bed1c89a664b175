// logtraveler - Time Window Log Search
//
// logtraveler prints the lines of many log files that fall inside a time
// window, inferring each file's timestamp format on the fly.
package main

import (
	"os"

	"github.com/ccollicutt/logtraveler/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
