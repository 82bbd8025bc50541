package main

import "github.com/vietddude/tronwatch/internal/cli"

func main() {
	cli.Execute()
}
