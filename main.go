package main

import "github.com/reed74/dependency-code2/cmd"

func main() {
	cmd.Execute()
}
