package main

import (
	"fmt"
	"os"

	"github.com/gmsas95/rfqextract/internal/cli"
)

var version = "dev"

func main() {
	cli.Version = version

	if len(os.Args) < 2 {
		cli.PrintExtendedHelp()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "extract":
		err = cli.HandleExtractCommand(os.Args[2:])
	case "email":
		err = cli.HandleEmailCommand(os.Args[2:])
	case "request":
		err = cli.HandleRequestCommand(os.Args[2:])
	case "classify":
		err = cli.HandleClassifyCommand(os.Args[2:])
	case "batch":
		err = cli.HandleBatchCommand(os.Args[2:])
	case "watch":
		err = cli.HandleWatchCommand(os.Args[2:])
	case "config":
		err = cli.HandleConfigCommand(os.Args[2:])
	case "token":
		err = cli.HandleTokenCommand(os.Args[2:])
	case "doctor":
		err = cli.HandleDoctorCommand(os.Args[2:])
	case "help", "--help", "-h":
		cli.PrintExtendedHelp()
	case "version", "--version", "-v":
		fmt.Printf("rfqextract version %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		cli.PrintExtendedHelp()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
