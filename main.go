package main

import "github.com/frahmantamala/ran-loyalty/cmd"

func main() {
	cmd.Execute()
}
