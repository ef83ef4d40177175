/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/cortexa-ai/apiserver/cmd"

func main() {
	cmd.Execute()
}
