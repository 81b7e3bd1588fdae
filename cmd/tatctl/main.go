/*
tatctl is the operator CLI for campus-support.

Usage:

	tatctl sweep                    run one escalation sweep
	tatctl deadlines --sla 48       preview SLA deadlines
*/
package main

import (
	"os"

	"github.com/spec-kit/campus-support/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
