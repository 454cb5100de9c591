package main

import "github.com/Yates-Labs/scribe/cmd"

func main() {
	cmd.Execute()
}
