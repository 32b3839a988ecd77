package main

import (
	cmd "github.com/kigawas/certifier-website/cmd/clicmd"
)

func main() {
	cmd.Execute()
}
