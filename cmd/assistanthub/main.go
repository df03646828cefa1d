package main

import (
	"log"
	"os"

	"assistanthub/internal/assistanthub/app"
)

func main() {
	if err := app.Run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
