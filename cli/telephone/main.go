package main

import (
	"os"

	telephonecmder "github.com/rhoadesScholar/llm-experiments/cmd/telephone"
)

func main() {
	cmd := telephonecmder.NewTelephoneCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
