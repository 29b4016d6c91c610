// Package main is the entry point for the allure-runtime application
package main

import "github.com/ethpandaops/allure-runtime/cmd"

func main() {
	cmd.Execute()
}
