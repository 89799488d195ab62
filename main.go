package main

import "github.com/weightgate/weightgate/cmd"

func main() {
	cmd.Execute()
}
