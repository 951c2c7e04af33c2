package main

import "github.com/example/spoon-voicebot/cmd"

func main() {
	cmd.Execute()
}
