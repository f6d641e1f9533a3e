package main

import (
	"github.com/openaerialmap/oam-mirror/cmd"
	"github.com/openaerialmap/oam-mirror/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
