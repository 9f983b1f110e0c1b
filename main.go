package main

import "cosmofit/cmd"

func main() {
	cmd.Execute()
}
