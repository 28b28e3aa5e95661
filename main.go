package main

import "schema-manager/cmd"

func main() {
	cmd.Execute()
}
