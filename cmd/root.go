package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "geoscope"}

	root.AddCommand(serveCMD(), migrateCMD(), auditCMD())
	_ = root.Execute()
}
