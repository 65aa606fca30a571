package main

import (
	"os"

	"S3Joiner/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
