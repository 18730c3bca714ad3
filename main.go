package main

import "roster-desk/cmd"

func main() {
	cmd.Execute()
}
