package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

// AskAction は1つの質問に回答する
func AskAction(ctx context.Context, cmd *cli.Command) error {
	question := strings.TrimSpace(cmd.String("question"))
	if question == "" {
		question = strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	}
	if question == "" {
		return fmt.Errorf("質問を指定してください: haibuddy ask -q <question>")
	}

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
	answer := orch.Run(ctx, sessionID, question)

	fmt.Println(answer)
	return nil
}
