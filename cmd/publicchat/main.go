// Command publicchat is the public-facing chat runtime for builder-authored
// chatbots. It answers end-user questions from each bot's own knowledge base
// via a Cobra CLI and an HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/maheshLEO4/public-chat-go/cmd/publicchat/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
