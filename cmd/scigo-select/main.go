// Command scigo-select ingests a tabular dataset, trains and compares
// regression models, records every run in a history ledger and serves
// predictions from the saved winner.
//
// Usage:
//
//	scigo-select ingest [--input data.csv]
//	scigo-select train (--model-type NAME... | --best-of-all) [--save-best] [--config models.yaml]
//	scigo-select history [--plot history.png]
//	scigo-select predict --input features.csv
//	scigo-select serve [--addr :8000]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
