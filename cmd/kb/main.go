package main

import "supportkb/internal/cli"

func main() {
	cli.Execute()
}
