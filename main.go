package main

import "github.com/KaramelBytes/subseg-cli/cmd"

func main() {
	cmd.Execute()
}
