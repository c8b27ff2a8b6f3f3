package main

import (
	"context"

	"github.com/maltedev/flipkart-scraper/cmd/flipkart-scraper/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
