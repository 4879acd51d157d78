package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

// ChatAction は対話モードで質問に回答する
// 空行またはEOFで終了する
func ChatAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("local"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	sessionID := cmd.String("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	orch := appCtx.NewOrchestrator()

	fmt.Printf("HAI Buddy (session: %s) - 空行で終了\n", sessionID)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			break
		}

		answer := orch.Run(ctx, sessionID, question)
		fmt.Println(answer)
		fmt.Println()
	}

	return scanner.Err()
}
