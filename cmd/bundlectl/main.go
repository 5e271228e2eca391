package main

import "github.com/NVIDIA/bundles/pkg/cli"

func main() {
	cli.Execute()
}
