package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hylla/lanes/internal/config"
)

// bootstrapIdentity asks for a display name on first launch and stores it in
// the config file. The board refuses to open without one.
func bootstrapIdentity(configPath string, input io.Reader, output io.Writer) error {
	if input == nil {
		return errors.New("bootstrap input is required")
	}
	if output == nil {
		output = io.Discard
	}
	reader := bufio.NewReader(input)
	_, _ = fmt.Fprintln(output, "lanes setup required")
	_, _ = fmt.Fprintln(output, "Choose the display name shown on your board.")
	name, err := promptRequired(reader, output, "Display name: ", "display name is required")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(output)
	if err := config.UpsertIdentity(configPath, name); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	return nil
}

// promptRequired repeats prompt until a non-empty answer arrives.
func promptRequired(reader *bufio.Reader, output io.Writer, prompt, emptyMsg string) (string, error) {
	for {
		value, err := readPromptLine(reader, output, prompt)
		if errors.Is(err, io.EOF) {
			return "", errors.New(emptyMsg)
		}
		if err != nil {
			return "", err
		}
		if value != "" {
			return value, nil
		}
		_, _ = fmt.Fprintln(output, emptyMsg)
	}
}

// readPromptLine writes prompt and returns the trimmed reply. A final line
// without a newline still counts; io.EOF means nothing was typed.
func readPromptLine(reader *bufio.Reader, output io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(output, prompt); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	line, err := reader.ReadString('\n')
	switch {
	case err == nil:
		return strings.TrimSpace(line), nil
	case errors.Is(err, io.EOF):
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed, nil
		}
		return "", io.EOF
	default:
		return "", fmt.Errorf("read prompt value: %w", err)
	}
}
