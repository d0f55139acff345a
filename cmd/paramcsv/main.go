// Command paramcsv exports and imports param tables as CSV from the shell.
//
//	paramcsv --schema NpcParam.yaml --param-version 11010000 export NpcParam.csv
//	paramcsv --schema NpcParam.yaml import NpcParam.csv edits.csv -o NpcParam.csv
//	paramcsv --schema NpcParam.yaml import-field NpcParam.csv hp.csv --field HP
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
