package main

import "github.com/passcan/passcan/cmd/passcan"

func main() { passcan.Execute() }
