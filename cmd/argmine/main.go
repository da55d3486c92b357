package main

import "github.com/vietddude/argmine/internal/cli"

func main() {
	cli.Execute()
}
