// Command migrate applies, rolls back, and inspects versioned schema migrations.
package main

import "github.com/aqasim81/schema-migrator/internal/cli"

func main() {
	cli.Execute()
}
