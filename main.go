package main

import "chipstream/cmd"

func main() {
	cmd.Execute()
}
