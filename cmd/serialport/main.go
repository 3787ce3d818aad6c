/*
Copyright © 2025 Jack Arian
*/
package main

import "github.com/jackarian/serialport/cmd"

func main() {
	cmd.Execute()
}
