package main

import "github.com/KaramelBytes/dssatview/cmd"

func main() {
	cmd.Execute()
}
