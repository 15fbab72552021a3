package main

import "horizons/internal/cli"

func main() {
	cli.Execute()
}
