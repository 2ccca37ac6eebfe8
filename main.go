package main

import "github.com/pders01/schedule-context/cmd"

func main() {
	cmd.Execute()
}
