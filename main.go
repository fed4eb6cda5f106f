package main

import "github.com/RyanBlaney/vocalytics/cmd"

func main() {
	cmd.Execute()
}
