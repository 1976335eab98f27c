package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (a *App) Main(ctx context.Context) {

	fmt.Println("Stories CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("stories > ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Println("Available commands: list, open <n>, upload <file>, delete <id>, exit")

		case "l", "list":
			renderGroups(os.Stdout, a.currentGroups())

		case "open":
			if len(args) == 0 {
				fmt.Println("Usage: open <group number>")
				continue
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Println("Usage: open <group number>")
				continue
			}
			logErr(a.OpenGroup(ctx, n))

		case "upload":
			if len(args) == 0 {
				fmt.Println("Usage: upload <file>")
				continue
			}
			logErr(a.Upload(ctx, args[0]))

		case "delete":
			if len(args) == 0 {
				fmt.Println("Usage: delete <story id>")
				continue
			}
			logErr(a.Delete(ctx, args[0]))

		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
