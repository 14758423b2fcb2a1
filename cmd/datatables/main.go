// Command datatables is the standalone admin data table tool.
package main

import "github.com/frameless-media/datatables/internal/cli"

func main() {
	cli.Execute()
}
