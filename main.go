package main

import "github.com/notargets/gridglue/cmd"

func main() {
	cmd.Execute()
}
