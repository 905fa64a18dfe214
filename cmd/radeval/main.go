package main

import "github.com/MeKo-Tech/radeval/cmd/radeval/cmd"

func main() {
	cmd.Execute()
}
