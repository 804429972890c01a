// Command benchgrid dispatches compute-bound benchmark tasks across worker
// nodes and records every task instance's lifecycle.
package main

import "yqhp/benchgrid/cmd"

func main() {
	cmd.Execute()
}
