package main

import (
	"log"

	"github.com/wikiscout/wikiscout/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
