package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"giaoan/api/internal/credential"
	"giaoan/api/internal/logger"
)

func runKey(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: giaoan key set|show|clear")
	}
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	s, err := credential.Open(cfg.CredentialDir())
	if err != nil {
		return fmt.Errorf("credential store: %w", err)
	}
	defer s.Close()

	switch args[0] {
	case "set":
		key := strings.Join(args[1:], "")
		if key == "" {
			if key, err = readKey(); err != nil {
				return err
			}
		}
		if strings.TrimSpace(key) == "" {
			return errors.New("key is empty")
		}
		if err := s.Save(key); err != nil {
			return err
		}
		status("Đã lưu API key " + logger.Mask(key))
	case "show":
		key, err := s.Load()
		if err != nil {
			return err
		}
		switch {
		case key != "":
			fmt.Println(logger.Mask(key))
		case cfg.GeminiAPIKey != "":
			fmt.Println(logger.Mask(cfg.GeminiAPIKey), "(from environment)")
		default:
			note("Chưa có API key. Dùng: giaoan key set")
		}
	case "clear":
		if err := s.Clear(); err != nil {
			return err
		}
		status("Đã xoá API key")
	default:
		return fmt.Errorf("unknown key command %q (set, show or clear)", args[0])
	}
	return nil
}

// readKey reads the key without echo on a terminal, or one line from a pipe.
func readKey() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Gemini API key: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
