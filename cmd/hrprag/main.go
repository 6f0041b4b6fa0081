package main

import "hrprag/internal/cli"

func main() {
	cli.Execute()
}
