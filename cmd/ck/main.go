package main

import (
	"os"

	"github.com/semcs/ck/cmd/ck/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
