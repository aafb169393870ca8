// Command wzpatch extracts, edits and patches WZSound audio records.
package main

import "github.com/papapumpkin/wzpatch/cmd"

func main() {
	cmd.Execute()
}
