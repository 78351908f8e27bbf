package main

import "perfdash/internal/app/server"

func main() {
	server.Run()
}
