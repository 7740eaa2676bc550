package main

import "woori-codeshare/internal/cli"

func main() {
	cli.Execute()
}
