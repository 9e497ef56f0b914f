// Package main is the entry point for the dailyclose application
package main

import (
	"github.com/opsdesk/dailyclose/cmd"
)

func main() {
	cmd.Execute()
}
