package main

import (
	"fmt"
	"os"

	"github.com/smazurov/zmqls/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "zmqls:", err)
		os.Exit(1)
	}
}
