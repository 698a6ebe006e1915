// Command lochist keeps a private local history of file saves.
package main

import "github.com/papapumpkin/lochist/cmd"

func main() {
	cmd.Execute()
}
