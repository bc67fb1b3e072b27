package main

import "github.com/medscan-tech/labxtract/cmd/labxtract/cmd"

func main() {
	cmd.Execute()
}
