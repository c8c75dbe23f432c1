package main

import "github.com/rpattn/consulta/cmd/consulta/cmd"

func main() {
	cmd.Execute()
}
