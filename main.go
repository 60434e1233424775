// Indexhist fetches the history of financial indexes and stores it in SQL.
package main

import (
	"github.com/huangsam/indexhist/cmd"
	"github.com/huangsam/indexhist/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("indexhist", err)
	}
}
