package main

import (
	"os"

	"github.com/harrisonrobin/visitdesk/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
