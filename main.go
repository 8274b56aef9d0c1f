package main

import "github.com/KaramelBytes/biasloom-cli/cmd"

func main() {
	cmd.Execute()
}
