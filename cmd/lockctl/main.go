// lockctl is the LockPort administration CLI: status queries, device
// listing, PIN management, and lockout recovery.

package main

import (
	"os"

	"github.com/Lintshiwe/LockPort/cmd/lockctl/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
