package config

import (
	"flag"
	"os"

	"github.com/syqdur/wedpxres-sub001/internal/flagx"
)

// parseFlags populates selected client Config fields from command-line
// flags.
//
// Supported flags (short forms):
//
//	-a string   server base URL (e.g., "http://127.0.0.1:8080")
//	-d string   device id
//	-u string   display name for uploads
//	-t string   admin bearer token
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-u", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerEndpointAddr, "a", config.ServerEndpointAddr, "server base URL")
	fs.StringVar(&config.DeviceID, "d", config.DeviceID, "device id")
	fs.StringVar(&config.UserName, "u", config.UserName, "display name")
	fs.StringVar(&config.AdminToken, "t", config.AdminToken, "admin token")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
