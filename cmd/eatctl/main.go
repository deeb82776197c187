package main

import "eatdecider/backend/internal/cli"

func main() {
	cli.Execute()
}
