package main

import (
	"log"
	"os"
)

const usage = "usage: worker parse <file> | worker import <file>"

func main() {
	if len(os.Args) < 3 {
		log.Fatal(usage)
	}

	var err error
	switch os.Args[1] {
	case "parse":
		err = runParse(os.Args[2], os.Stdout)
	case "import":
		err = runImport(os.Args[2], os.Stdout)
	default:
		log.Fatalf("unknown command: %s\n%s", os.Args[1], usage)
	}
	if err != nil {
		log.Fatal(err)
	}
}
