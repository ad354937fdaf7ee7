package main

import (
	"pitwall-backend/cmd/pitwall-cli/commands"
	"pitwall-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
