// Package main is the entry point for the Abhyasam study service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/abhyasam/cmd/abhyasam/app"
)

func main() {
	app.NewApp().Run()
}
