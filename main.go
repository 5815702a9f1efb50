package main

import "stanfood-backend/cmd"

func main() {
	cmd.Execute()
}
