package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"authkeeper/internal/client"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: authctl [flags] <command>

Commands:
  register     create an account and log in
  login        authenticate and store tokens
  refresh      rotate the refresh token
  whoami       print the authenticated identity
  session      print the current session expiry
  logout       revoke the stored refresh token
  logout-all   revoke every session of this user

Flags:`)
	flag.PrintDefaults()
}

func main() {

	defaultPath, err := client.DefaultTokenPath()
	if err != nil {
		log.Fatalf("cannot determine token path: %v", err)
	}

	serverURL := flag.String("s", "http://localhost:5000", "authkeeper server URL")
	tokenPath := flag.String("f", defaultPath, "token file path")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	app := client.NewApp(
		client.New(*serverURL),
		client.NewTokenStore(*tokenPath),
		os.Stdin, os.Stdout,
	)

	commands := map[string]func(context.Context) error{
		"register":   app.Register,
		"login":      app.Login,
		"refresh":    app.Refresh,
		"whoami":     app.Whoami,
		"session":    app.Session,
		"logout":     app.Logout,
		"logout-all": app.LogoutAll,
	}

	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		usage()
		os.Exit(2)
	}

	if err := cmd(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
