package main

import "github.com/slipway-sh/slipway/cmd/root"

func main() {
	root.Execute()
}
