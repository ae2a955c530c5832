package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

const shellHelp = `commands: show, read [-c] <name>, write <name> <value> [unit],
          clear, status, sensors [-n count] [-i interval] [-f file], await,
          history [-n count], help, exit`

// shell runs commands read from an interactive prompt until EOF or exit.
func (c *cli) shell(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ltc3350> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	prev := c.out
	c.out = rl.Stdout()
	defer func() { c.out = prev }()

	fmt.Fprintln(c.out, shellHelp)
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if done := c.exec(ctx, line); done {
			return nil
		}
	}
}

// exec runs one shell line and reports whether the shell should exit.
func (c *cli) exec(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "exit", "quit":
		return true
	case "help", "?":
		fmt.Fprintln(c.out, shellHelp)
		return false
	case "shell":
		fmt.Fprintln(c.out, "already in the shell")
		return false
	}

	if err := c.run(ctx, args); err != nil {
		fmt.Fprintf(c.out, "%s: %v\n", args[0], err)
	}
	return false
}
