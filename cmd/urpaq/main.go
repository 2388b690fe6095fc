package main

import "urpaq/internal/cli"

func main() {
	cli.Execute()
}
