package main

import "ms-csevents/internal/cli"

func main() {
	cli.Execute()
}
