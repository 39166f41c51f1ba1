// Command tagsync keeps the version macros of a C/C++ header in step with the
// latest git tag.
package main

import "github.com/abdul-hamid-achik/tagsync/cmd/tagsync/commands"

func main() {
	commands.Execute()
}
