package main

import (
	"github.com/robotalks/cartbus/pkg/cli/sh"
	"github.com/robotalks/cartbus/pkg/config"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
