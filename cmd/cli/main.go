package main

import (
	"github.com/mchmarny/lofcall/pkg/cli"
)

func main() {
	cli.Execute()
}
