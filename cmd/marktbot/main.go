package main

import "github.com/dyike/marktbot/internal/cli"

func main() {
	cli.Run()
}
