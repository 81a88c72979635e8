package main

import (
	"os"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
