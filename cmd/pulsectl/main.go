package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/odyssey-erp/pulse/cmd/pulsectl/cli"
)

func main() {
	_ = godotenv.Load()
	os.Exit(int(cli.Run(os.Args[1:])))
}
