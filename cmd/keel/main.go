// Command keel boots a core container with a few demo components and either
// prints what was registered or serves it over HTTP.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
