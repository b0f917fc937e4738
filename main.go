package main

import "github.com/josephlewis42/nyush/cmd"

func main() {
	cmd.Execute()
}
