// Command briefsearch searches the web for a topic and writes a short cited
// summary. It also serves the same pipeline over HTTP and MCP.
package main

import (
	"os"
)

func main() {
	os.Exit(execute())
}
