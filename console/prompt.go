package console

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/chzyer/readline"

	"Melodix/logger"
)

// Prompt reads commands with line editing, history and completion until the
// user quits or ctx is done.
func Prompt(ctx context.Context, c *Console) error {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, name := range Commands() {
		items = append(items, readline.PcItem(name))
	}

	history, err := xdg.StateFile(filepath.Join("melodix", "history"))
	if err != nil {
		logger.Warn("no history file", logger.ErrorField(err))
		history = ""
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "melodix> ",
		HistoryFile:     history,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Listener: readline.FuncListener(func(line []rune, pos int, key rune) ([]rune, int, bool) {
			c.Typing(string(line))
			return nil, 0, false
		}),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	c.SetOutput(rl.Stdout())
	stop := context.AfterFunc(ctx, func() { rl.Close() })
	defer stop()

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := c.Exec(ctx, line); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			logger.Debug("command failed", logger.String("line", line), logger.ErrorField(err))
			c.printf("error: %v\n", err)
		}
	}
}
