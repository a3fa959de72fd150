// Command corpora builds and queries retrieval-augmented corpora from
// the command line.
package main

import (
	"github.com/joho/godotenv"

	"github.com/custodia-labs/corpora-cli/internal/adapters/driving/cli"
)

func main() {
	_ = godotenv.Load()

	cli.Execute()
}
