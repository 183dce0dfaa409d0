package main

import "github.com/nickvanderzwet/tabserve/cmd/tabserve"

func main() {
	tabserve.Main()
}
