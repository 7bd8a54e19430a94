package main

import "github.com/goplus/llprov/cmd/llprov/internal"

func main() {
	internal.Execute()
}
