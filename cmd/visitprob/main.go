package main

import (
	"log"
	"os"
)

func main() {
	log.SetFlags(log.Ltime)
	if err := rootCmd.Execute(); err != nil {
		log.Printf("%+v", err)
		os.Exit(1)
	}
}
