package main

import (
	"context"
	"os"
)

func main() {
	Execute(context.Background(), os.Args[1:])
}
