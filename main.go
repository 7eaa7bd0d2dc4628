package main

import "event-signup-backend/cmd"

func main() {
	cmd.Run()
}
