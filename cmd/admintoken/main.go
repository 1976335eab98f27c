// Command admintoken mints an HS256 admin token for moderation tooling.
// There is no login flow; operators run this next to the server config.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/syqdur/wedpxres-sub001/internal/flagx"
	"github.com/syqdur/wedpxres-sub001/internal/server/auth"
	"github.com/syqdur/wedpxres-sub001/internal/server/config"
)

func main() {
	args := flagx.FilterArgs(os.Args[1:], []string{"-t"})

	fs := flag.NewFlagSet("admintoken", flag.ContinueOnError)
	validity := fs.Duration("t", 24*time.Hour, "token validity")
	if err := fs.Parse(args); err != nil {
		log.Fatal(err)
	}

	cfg := config.LoadConfig()

	token, err := auth.GenerateAdminToken([]byte(cfg.SecretKey), *validity)
	if err != nil {
		log.Fatalf("minting token: %v", err)
	}

	fmt.Println(token)
}
