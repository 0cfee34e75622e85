package main

import "fileshare/internal/app"

func main() {
	app.Run()
}
