package main

import (
	"github.com/graphsense/eth-ingest/cmd"
)

func main() {
	cmd.Execute()
}
