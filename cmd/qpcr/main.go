// cmd/qpcr/main.go
package main

import (
	"qpcr/internal/app"
	"qpcr/internal/appshell"
)

func main() { appshell.Main(app.RunContext) }
