// Command boardtrack tracks serialized boards through manufacturing test.
package main

import (
	"os"

	"github.com/mesh-intelligence/boardtrack/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
