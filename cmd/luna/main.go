package main

import "github.com/vietddude/luna/internal/cli"

func main() {
	cli.Execute()
}
