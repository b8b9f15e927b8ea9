package main

import (
	"riven-sniper/internal/cli"
)

func main() {
	cli.Execute()
}
