package main

import "github.com/MeKo-Tech/pdfcodes/cmd/pdfcodes/cmd"

func main() {
	cmd.Execute()
}
