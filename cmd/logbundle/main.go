package main

import (
	"github.com/aumtech/logbundle/pkg/cli"
)

func main() {
	cli.Execute()
}
