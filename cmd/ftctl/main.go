package main

import "github.com/mesworks/floortimer/cmd/ftctl/arg"

func main() {
	arg.Execute()
}
