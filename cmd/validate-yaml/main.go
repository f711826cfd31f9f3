// Command validate-yaml checks offline question bank files.
package main

import (
	"fmt"
	"os"

	"github.com/blockedby/interview-os/internal/bank"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("No files to check.")
		os.Exit(0)
	}

	failed := false
	for _, path := range os.Args[1:] {
		b, err := bank.Load(path)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", path, err)
			failed = true
			continue
		}

		sizes := b.Sizes()
		fmt.Printf("✅ %s is valid: %d categories, %d easy / %d medium / %d hard questions\n",
			path, len(b.Categories()), sizes.Easy, sizes.Medium, sizes.Hard)
	}

	if failed {
		os.Exit(1)
	}
}
