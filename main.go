package main

import (
	"github.com/sparkwin/wlscan/cmd"
)

func main() {
	cmd.Execute()
}
