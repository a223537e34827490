// @title        duet API
// @version      1.0
// @description  Two AI co-hosts, Mike and Miley, talk a listener through an article.
// @BasePath     /
package main

import (
	"os"

	"github.com/apresai/duet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
