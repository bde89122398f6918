package main

import "github.com/Opselon/rubica-bot/cmd"

func main() {
	cmd.Execute()
}
